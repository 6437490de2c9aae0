package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	govmodels "taxgate/internal/governance/models"
	govservice "taxgate/internal/governance/service"
	govstore "taxgate/internal/governance/store"
	identity "taxgate/internal/identity/models"
	idservice "taxgate/internal/identity/service"
	idstore "taxgate/internal/identity/store"
	"taxgate/internal/identity/store/revocation"
	"taxgate/internal/identity/token"
	notifservice "taxgate/internal/notification/service"
	notifstore "taxgate/internal/notification/store"
	"taxgate/internal/notifier"
)

// TransportSuite drives the full router over in-memory stores: real
// services, real middleware, no HTTP mocking.
type TransportSuite struct {
	suite.Suite
	principals *idstore.InMemoryStore
	params     *govstore.InMemoryStore
	router     http.Handler
	now        time.Time
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportSuite))
}

func (s *TransportSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Anchored to the wall clock because token validation checks exp
	// against real time.
	s.now = time.Now().UTC().Truncate(time.Second)

	s.principals = idstore.NewInMemory()
	s.params = govstore.NewInMemory()
	inboxStore := notifstore.NewInMemory()

	dispatcher := notifier.NewDispatcher(notifier.NewLog(log), log, nil, time.Second)
	idsvc, err := idservice.New(s.principals, revocation.NewInMemory(),
		token.NewService("test-key", "taxgate-test"), dispatcher,
		idservice.WithLogger(log),
		idservice.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)

	inbox, err := notifservice.New(inboxStore,
		notifservice.WithLogger(log),
		notifservice.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)

	rates, err := govservice.New(s.params, idsvc, inbox,
		govservice.WithLogger(log),
		govservice.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)

	s.router = NewRouter(
		NewAuthHandler(idsvc),
		NewRateHandler(rates),
		NewNotificationHandler(inbox),
		idsvc,
		log,
	)
}

func (s *TransportSuite) seed(p identity.Principal) identity.Principal {
	s.Require().NoError(s.principals.Save(context.Background(), &p))
	return p
}

func hashOf(pw string) *string {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	h := string(hash)
	return &h
}

func (s *TransportSuite) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *TransportSuite) decode(rec *httptest.ResponseRecorder, into any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(into))
}

// storedCode reads the persisted OTP for a principal, standing in for the
// delivery channel.
func (s *TransportSuite) storedCode(id string) string {
	p, err := s.principals.FindByID(context.Background(), id)
	s.Require().NoError(err)
	s.Require().NotNil(p.OTPCode)
	return *p.OTPCode
}

// login runs the two-step login for a staff principal and returns the bearer
// token.
func (s *TransportSuite) login(flow, identifier, password, principalID string) string {
	rec := s.do(http.MethodPost, "/auth/"+flow+"/login", "", loginRequest{
		Identifier: identifier, Password: password,
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var challenge challengeResponse
	s.decode(rec, &challenge)

	rec = s.do(http.MethodPost, "/auth/"+flow+"/verify", "", verifyRequest{
		Handle: challenge.Handle, Code: s.storedCode(principalID),
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var sess sessionResponse
	s.decode(rec, &sess)
	s.Require().NotEmpty(sess.AccessToken)
	return sess.AccessToken
}

func (s *TransportSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "ok")
}

func (s *TransportSuite) TestRegistrantLogin() {
	s.seed(identity.Principal{
		ID: "reg-1", Name: "Ama Mensah", Email: "ama.mensah@example.com",
		Role: identity.RoleResident, Active: true,
	})

	s.Run("unknown account is 404", func() {
		rec := s.do(http.MethodPost, "/auth/registrant/login", "", loginRequest{Identifier: "nobody@example.com"})
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("unknown flow is 400", func() {
		rec := s.do(http.MethodPost, "/auth/telepathy/login", "", loginRequest{Identifier: "ama.mensah@example.com"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("missing identifier is 400", func() {
		rec := s.do(http.MethodPost, "/auth/registrant/login", "", loginRequest{})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("login returns a handle and masked contact", func() {
		rec := s.do(http.MethodPost, "/auth/registrant/login", "", loginRequest{Identifier: "ama.mensah@example.com"})
		s.Require().Equal(http.StatusOK, rec.Code)

		var challenge challengeResponse
		s.decode(rec, &challenge)
		s.NotEmpty(challenge.Handle)
		s.Equal("am********@example.com", challenge.MaskedContact)
		s.NotContains(rec.Body.String(), "ama.mensah@")
	})

	s.Run("verify completes the session without a token", func() {
		rec := s.do(http.MethodPost, "/auth/registrant/login", "", loginRequest{Identifier: "ama.mensah@example.com"})
		s.Require().Equal(http.StatusOK, rec.Code)
		var challenge challengeResponse
		s.decode(rec, &challenge)

		rec = s.do(http.MethodPost, "/auth/registrant/verify", "", verifyRequest{
			Handle: challenge.Handle, Code: s.storedCode("reg-1"),
		})
		s.Require().Equal(http.StatusOK, rec.Code)

		var sess sessionResponse
		s.decode(rec, &sess)
		s.Equal("reg-1", sess.PrincipalID)
		s.Empty(sess.AccessToken)
	})
}

// Wrong code, stale handle, and expired code all read identically from
// outside.
func (s *TransportSuite) TestVerifyFailureUniformity() {
	s.seed(identity.Principal{
		ID: "reg-1", Name: "Ama Mensah", Email: "ama.mensah@example.com",
		Role: identity.RoleResident, Active: true,
	})

	rec := s.do(http.MethodPost, "/auth/registrant/login", "", loginRequest{Identifier: "ama.mensah@example.com"})
	s.Require().Equal(http.StatusOK, rec.Code)
	var challenge challengeResponse
	s.decode(rec, &challenge)

	wrongCode := s.do(http.MethodPost, "/auth/registrant/verify", "", verifyRequest{
		Handle: challenge.Handle, Code: "000000",
	})
	unknownHandle := s.do(http.MethodPost, "/auth/registrant/verify", "", verifyRequest{
		Handle: "deadbeefdeadbeefdeadbeefdeadbeef", Code: "123456",
	})

	s.now = s.now.Add(6 * time.Minute)
	expired := s.do(http.MethodPost, "/auth/registrant/verify", "", verifyRequest{
		Handle: challenge.Handle, Code: s.storedCode("reg-1"),
	})

	s.Equal(http.StatusUnauthorized, wrongCode.Code)
	s.Equal(wrongCode.Body.String(), unknownHandle.Body.String())
	s.Equal(wrongCode.Body.String(), expired.Body.String())
}

func (s *TransportSuite) TestAuthMiddleware() {
	s.Run("missing token is 401", func() {
		rec := s.do(http.MethodGet, "/rates", "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("garbage token is 401", func() {
		rec := s.do(http.MethodGet, "/rates", "not-a-jwt", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *TransportSuite) TestGovernanceEndpoints() {
	s.seed(identity.Principal{
		ID: "mkr-1", Name: "Abena Osei", Username: "aosei",
		Email: "abena.osei@gra.gov.gh", Role: identity.RoleGRAMaker,
		Active: true, PasswordHash: hashOf("maker-pass"),
	})
	s.seed(identity.Principal{
		ID: "chk-1", Name: "Kofi Boateng", Username: "kboateng",
		Email: "kofi.boateng@gra.gov.gh", Role: identity.RoleGRAChecker,
		Active: true, PasswordHash: hashOf("checker-pass"),
	})
	s.Require().NoError(s.params.Create(context.Background(), &govmodels.RateParameter{
		ID: 7, Name: "VAT", Rate: 15, Status: govmodels.StatusActive,
		CreatedAt: s.now, UpdatedAt: s.now,
	}))

	makerToken := s.login("admin", "aosei", "maker-pass", "mkr-1")
	checkerToken := s.login("admin", "kboateng", "checker-pass", "chk-1")

	s.Run("list shows the seeded parameter", func() {
		rec := s.do(http.MethodGet, "/rates", makerToken, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var out []rateResponse
		s.decode(rec, &out)
		s.Require().Len(out, 1)
		s.Equal("VAT", out[0].Name)
		s.Equal(15.0, out[0].Rate)
	})

	s.Run("maker proposes", func() {
		rec := s.do(http.MethodPost, "/rates/7/propose", makerToken, proposeRequest{NewRate: 17.5})
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		var out rateResponse
		s.decode(rec, &out)
		s.Equal("pending", out.Status)
		s.Equal(17.5, *out.PendingRate)
		s.Equal(15.0, out.Rate)
	})

	s.Run("checker sees the proposal in their inbox", func() {
		rec := s.do(http.MethodGet, "/notifications/unread-count", checkerToken, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"unread":1`)
	})

	s.Run("maker cannot approve", func() {
		rec := s.do(http.MethodPost, "/rates/7/approve", makerToken, nil)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("checker approves", func() {
		rec := s.do(http.MethodPost, "/rates/7/approve", checkerToken, nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		var out rateResponse
		s.decode(rec, &out)
		s.Equal("active", out.Status)
		s.Equal(17.5, out.Rate)
		s.Nil(out.PendingRate)
	})

	s.Run("second approval is 400 invalid_state", func() {
		rec := s.do(http.MethodPost, "/rates/7/approve", checkerToken, nil)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "invalid_state")
	})

	s.Run("maker reads the decision and clears their inbox", func() {
		rec := s.do(http.MethodGet, "/notifications", makerToken, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var out []notificationResponse
		s.decode(rec, &out)
		s.Require().Len(out, 1)
		s.Contains(out[0].Message, "approved")
		s.False(out[0].Read)

		rec = s.do(http.MethodPost, "/notifications/"+out[0].ID+"/read", makerToken, nil)
		s.Equal(http.StatusNoContent, rec.Code)

		rec = s.do(http.MethodGet, "/notifications/unread-count", makerToken, nil)
		s.Contains(rec.Body.String(), `"unread":0`)
	})

	s.Run("read-all is a no-op on an empty inbox", func() {
		rec := s.do(http.MethodPost, "/notifications/read-all", makerToken, nil)
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("bad parameter id is 400", func() {
		rec := s.do(http.MethodPost, "/rates/seven/propose", makerToken, proposeRequest{NewRate: 10})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *TransportSuite) TestLogout() {
	s.seed(identity.Principal{
		ID: "adm-1", Name: "Efua Owusu", Username: "eowusu",
		Email: "efua.owusu@gra.gov.gh", Role: identity.RoleAdmin,
		Active: true, PasswordHash: hashOf("admin-pass"),
	})

	tok := s.login("admin", "eowusu", "admin-pass", "adm-1")

	rec := s.do(http.MethodGet, "/rates", tok, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/auth/logout", tok, nil)
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/rates", tok, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	// Logout is idempotent.
	rec = s.do(http.MethodPost, "/auth/logout", tok, nil)
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *TransportSuite) TestPasswordSetFlow() {
	s.seed(identity.Principal{
		ID: "mon-1", Name: "Yaw Darko", Username: "ydarko",
		Email: "yaw.darko@gra.gov.gh", Role: identity.RoleMonitoring,
		Active: true,
	})

	rec := s.do(http.MethodPost, "/auth/password_set/login", "", loginRequest{Identifier: "yaw.darko@gra.gov.gh"})
	s.Require().Equal(http.StatusOK, rec.Code)
	var challenge challengeResponse
	s.decode(rec, &challenge)

	s.Run("short password is 400", func() {
		rec := s.do(http.MethodPost, "/auth/password", "", setPasswordRequest{
			Handle: challenge.Handle, Code: s.storedCode("mon-1"), NewPassword: "short",
		})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("set password then log in with it", func() {
		rec := s.do(http.MethodPost, "/auth/password", "", setPasswordRequest{
			Handle: challenge.Handle, Code: s.storedCode("mon-1"), NewPassword: "br4nd-new-pass",
		})
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		tok := s.login("monitoring", "ydarko", "br4nd-new-pass", "mon-1")
		s.NotEmpty(tok)
	})
}
