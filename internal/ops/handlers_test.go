package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Monkestation/Veyra-Vet/internal/config"
	"github.com/Monkestation/Veyra-Vet/internal/models"
	"github.com/Monkestation/Veyra-Vet/internal/repository"
	"github.com/Monkestation/Veyra-Vet/internal/scheduler"
	"github.com/Monkestation/Veyra-Vet/internal/service"
	"github.com/Monkestation/Veyra-Vet/internal/store"
)

// gatewayStub satisfies both service gateways with no-ops.
type gatewayStub struct{}

func (gatewayStub) CreateVettingChannel(_ context.Context, _, _ string) (string, error) {
	return "chan-1", nil
}
func (gatewayStub) PostVettingPrompt(_ context.Context, _ string, _ *models.VettingRequest) error {
	return nil
}
func (gatewayStub) NotifyUser(_ context.Context, _, _ string) error { return nil }
func (gatewayStub) CreateCommissionChannel(_ context.Context, _, _ string) (string, error) {
	return "chan-2", nil
}
func (gatewayStub) CreateArtworkThread(_ context.Context, _ string) (string, error) {
	return "thread-1", nil
}
func (gatewayStub) PostCommissionStatus(_ context.Context, _ *models.Commission) error    { return nil }
func (gatewayStub) RefreshCommissionStatus(_ context.Context, _ *models.Commission) error { return nil }
func (gatewayStub) PostClosureNotice(_ context.Context, _ *models.Commission) error       { return nil }
func (gatewayStub) RenameChannel(_ context.Context, _, _ string) error                    { return nil }
func (gatewayStub) DeleteChannel(_ context.Context, _ string) error                       { return nil }

// veyraStub satisfies veyra.API with absence.
type veyraStub struct{}

func (veyraStub) GetVerificationByCkey(_ context.Context, _ string) (*models.Verification, error) {
	return nil, nil
}
func (veyraStub) CreateOrUpdateVerification(_ context.Context, discordID, ckey string, flags models.VerifiedFlags) (*models.Verification, error) {
	return &models.Verification{DiscordID: discordID, Ckey: ckey, VerifiedFlags: flags}, nil
}

func newTestServer(t *testing.T) (*Server, repository.VettingRepository) {
	t.Helper()

	dir := t.TempDir()
	vetRepo := repository.NewVettingRepository(
		store.NewFileStore[*models.VettingRequest](filepath.Join(dir, "vetting.json"), "vetting requests"))
	comRepo := repository.NewCommissionRepository(
		store.NewFileStore[*models.Commission](filepath.Join(dir, "commissions.json"), "commissions"))
	require.NoError(t, vetRepo.Init(context.Background()))
	require.NoError(t, comRepo.Init(context.Background()))

	sched := scheduler.New()
	t.Cleanup(sched.Stop)

	vetSvc := service.NewVettingService(vetRepo, veyraStub{}, gatewayStub{}, sched)
	comSvc := service.NewCommissionService(comRepo, gatewayStub{}, sched)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:            "test-secret",
		OpsAdminUser:         "admin",
		OpsAdminPasswordHash: string(hash),
	}
	return NewServer(cfg, vetSvc, comSvc, nil), vetRepo
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func loginToken(t *testing.T, srv *Server) string {
	t.Helper()
	resp, raw := doJSON(t, srv, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "admin", "password": "hunter2"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

func TestOps_Health(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	resp, raw := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"status":"ok"`)
	assert.Contains(t, string(raw), `"vetting_records":0`)
}

func TestOps_Login(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	loginToken(t, srv)
}

func TestOps_Login_BadCredentials(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	tests := []map[string]string{
		{"username": "admin", "password": "wrong"},
		{"username": "intruder", "password": "hunter2"},
	}
	for _, creds := range tests {
		resp, _ := doJSON(t, srv, http.MethodPost, "/api/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestOps_Stats_RequiresAuth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/stats", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOps_Stats(t *testing.T) {
	t.Parallel()

	srv, vetRepo := newTestServer(t)
	require.NoError(t, vetRepo.Put(context.Background(), &models.VettingRequest{
		ID: "v1", UserID: "user-1", Status: models.VettingStatusPending, CreatedAt: time.Now(),
	}))

	token := loginToken(t, srv)
	resp, raw := doJSON(t, srv, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var payload struct {
		Vetting map[string]int `json:"vetting"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, 1, payload.Vetting["pending"])
}

func TestOps_Cleanup(t *testing.T) {
	t.Parallel()

	srv, vetRepo := newTestServer(t)
	require.NoError(t, vetRepo.Put(context.Background(), &models.VettingRequest{
		ID: "v1", UserID: "user-1", Status: models.VettingStatusDenied,
		CreatedAt: time.Now().Add(-40 * 24 * time.Hour),
	}))

	token := loginToken(t, srv)
	resp, raw := doJSON(t, srv, http.MethodPost, "/api/cleanup", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var payload struct {
		VettingRemoved int `json:"vetting_removed"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, 1, payload.VettingRemoved)
}

func TestOps_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	resp, _ := doJSON(t, srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
