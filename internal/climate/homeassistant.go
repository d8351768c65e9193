package climate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the Home Assistant connection settings.
type Config struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	WorkdayEntity string // e.g. binary_sensor.workday, optional
}

// HAClient talks to the Home Assistant REST API. It implements both
// Transport (climate service calls) and WorkdayCalendar (workday sensor).
type HAClient struct {
	config     Config
	httpClient *http.Client
}

func NewHAClient(config Config) *HAClient {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &HAClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

var _ Transport = (*HAClient)(nil)
var _ WorkdayCalendar = (*HAClient)(nil)

// entityState is the subset of a Home Assistant state object we read.
type entityState struct {
	EntityID   string `json:"entity_id"`
	State      string `json:"state"`
	Attributes struct {
		CurrentTemperature *float64 `json:"current_temperature"`
	} `json:"attributes"`
}

// CurrentTemperature returns the entity's reported temperature, or nil when
// the device exposes none (preset-only entities).
func (c *HAClient) CurrentTemperature(ctx context.Context, entityID string) (*float64, error) {
	var state entityState
	if err := c.getJSON(ctx, "/api/states/"+entityID, &state); err != nil {
		return nil, err
	}
	return state.Attributes.CurrentTemperature, nil
}

// Apply issues the assigned fields as climate service calls, one call per
// assigned field. An hvac_mode of "off" maps to climate.turn_off, matching
// how thermostat integrations prefer to be switched off.
func (c *HAClient) Apply(ctx context.Context, entityID string, cmd CommandSet) error {
	if cmd.HvacMode.State != FieldUnset && cmd.HvacMode.Value == "off" {
		return c.callService(ctx, "turn_off", map[string]any{"entity_id": entityID})
	}

	if cmd.Temperature.State != FieldUnset {
		data := map[string]any{"entity_id": entityID, "temperature": cmd.Temperature.Value}
		if err := c.callService(ctx, "set_temperature", data); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		field   TextField
		service string
		key     string
	}{
		{cmd.HvacMode, "set_hvac_mode", "hvac_mode"},
		{cmd.FanMode, "set_fan_mode", "fan_mode"},
		{cmd.SwingMode, "set_swing_mode", "swing_mode"},
		{cmd.PresetMode, "set_preset_mode", "preset_mode"},
	} {
		if f.field.State == FieldUnset {
			continue
		}
		data := map[string]any{"entity_id": entityID, f.key: f.field.Value}
		if err := c.callService(ctx, f.service, data); err != nil {
			return err
		}
	}
	return nil
}

// IsWorkday reads the configured workday sensor. The date argument is
// informational only: the sensor reflects "today", which is the only date
// the resolver asks about.
func (c *HAClient) IsWorkday(ctx context.Context, date string) (bool, error) {
	if c.config.WorkdayEntity == "" {
		return false, fmt.Errorf("no workday entity configured")
	}
	var state entityState
	if err := c.getJSON(ctx, "/api/states/"+c.config.WorkdayEntity, &state); err != nil {
		return false, err
	}
	return state.State == "on", nil
}

func (c *HAClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *HAClient) callService(ctx context.Context, service string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/services/climate/"+service, bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, body)
	}
	return nil
}

func (c *HAClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
