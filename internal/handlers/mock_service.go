package handlers

import (
	"context"
	"net/http"
	"time"

	"climate_scheduler/internal/models"
	"climate_scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastGenUsername    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockScheduler struct {
	resolveErr    error
	advanceResp   models.AdvanceOverride
	advanceErr    error
	cancelErr     error
	override      *models.AdvanceOverride
	summaryResp   models.ScheduleSummary
	summaryErr    error
	historyResp   []models.AdvanceHistoryEntry
	historyErr    error
	clearErr      error
	resolveCalls  []string
	advanceCalls  []string
	cancelCalls   []string
	syncAllCalled int
}

func (m *mockScheduler) ResolveAll(ctx context.Context) {}
func (m *mockScheduler) ResolveGroup(ctx context.Context, groupName string) error {
	m.resolveCalls = append(m.resolveCalls, groupName)
	return m.resolveErr
}
func (m *mockScheduler) Advance(ctx context.Context, groupName string) (models.AdvanceOverride, error) {
	m.advanceCalls = append(m.advanceCalls, groupName)
	return m.advanceResp, m.advanceErr
}
func (m *mockScheduler) CancelAdvance(ctx context.Context, groupName string) error {
	m.cancelCalls = append(m.cancelCalls, groupName)
	return m.cancelErr
}
func (m *mockScheduler) OverrideStatus(groupName string) *models.AdvanceOverride {
	return m.override
}
func (m *mockScheduler) Summary(ctx context.Context, groupName string) (models.ScheduleSummary, error) {
	return m.summaryResp, m.summaryErr
}
func (m *mockScheduler) History(ctx context.Context, groupName string, window time.Duration) ([]models.AdvanceHistoryEntry, error) {
	return m.historyResp, m.historyErr
}
func (m *mockScheduler) ClearHistory(ctx context.Context, groupName string) error {
	return m.clearErr
}
func (m *mockScheduler) SyncAll(ctx context.Context) { m.syncAllCalled++ }

type mockManagement struct {
	model    models.ScheduleModel
	modelErr error
	err      error

	createdGroups   []string
	deletedGroups   []string
	createdProfiles []string
	lastSchedule    models.DaySchedule
	lastSettings    models.Settings
}

func (m *mockManagement) Model(ctx context.Context) (models.ScheduleModel, error) {
	return m.model, m.modelErr
}
func (m *mockManagement) CreateGroup(ctx context.Context, name string, entities []string) error {
	m.createdGroups = append(m.createdGroups, name)
	return m.err
}
func (m *mockManagement) DeleteGroup(ctx context.Context, name string) error {
	m.deletedGroups = append(m.deletedGroups, name)
	return m.err
}
func (m *mockManagement) RenameGroup(ctx context.Context, oldName, newName string) error { return m.err }
func (m *mockManagement) SetGroupEnabled(ctx context.Context, name string, enabled bool) error {
	return m.err
}
func (m *mockManagement) SetGroupIgnored(ctx context.Context, name string, ignored bool) error {
	return m.err
}
func (m *mockManagement) SetGroupEntities(ctx context.Context, name string, entities []string) error {
	return m.err
}
func (m *mockManagement) SetActiveProfile(ctx context.Context, groupName, profileName string) error {
	return m.err
}
func (m *mockManagement) CreateProfile(ctx context.Context, name string, mode models.ScheduleMode) error {
	m.createdProfiles = append(m.createdProfiles, name)
	return m.err
}
func (m *mockManagement) DeleteProfile(ctx context.Context, name string) error { return m.err }
func (m *mockManagement) RenameProfile(ctx context.Context, o, n string) error { return m.err }
func (m *mockManagement) SetSettings(ctx context.Context, s models.Settings) error {
	m.lastSettings = s
	return m.err
}
func (m *mockManagement) SetProfileSchedule(ctx context.Context, name string, mode models.ScheduleMode, days models.DaySchedule) error {
	m.lastSchedule = days
	return m.err
}

type mockEventLog struct {
	resp       []models.ScheduleEvent
	err        error
	lastFilter service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ScheduleEvent, error) {
	m.lastFilter = f
	return m.resp, m.err
}

type mockPerformance struct {
	resp []models.PerformanceSession
	err  error
}

func (m *mockPerformance) Sessions(ctx context.Context, entityID string, window time.Duration) ([]models.PerformanceSession, error) {
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
