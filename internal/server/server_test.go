package server

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lottery_system/internal/audit"
	"lottery_system/internal/auth"
	"lottery_system/internal/domain"
	"lottery_system/internal/drawcrypt"
	"lottery_system/internal/lottery"
	"lottery_system/internal/session"
	"lottery_system/internal/store/storetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seed = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"

type harness struct {
	t       *testing.T
	engine  *gin.Engine
	srv     *httptest.Server
	users   *storetest.Users
	draws   *storetest.Draws
	svc     *lottery.Service
	hook    *test.Hook
	mr      *miniredis.Miniredis
	logPath string
}

func newHarness(t *testing.T, maintenance bool) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	hexKey, err := drawcrypt.GenerateKey()
	require.NoError(t, err)
	key, err := drawcrypt.ParseKey(hexKey)
	require.NoError(t, err)
	cipher, err := drawcrypt.New(key)
	require.NoError(t, err)

	log, hook := test.NewNullLogger()
	logPath := filepath.Join(t.TempDir(), "security.log")
	f, err := audit.AttachFile(log, logPath)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	bg, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	users, draws := storetest.NewUsers(), storetest.NewDraws()
	svc := lottery.NewService(draws, cipher)
	r, err := NewRouter(Deps{
		Users:       users,
		Lottery:     svc,
		Sessions:    session.NewManager(rdb, "test-secret", time.Hour, false),
		Redis:       rdb,
		Events:      audit.New(log),
		SecurityLog: logPath,
		LoginRate:   1000,
		LoginBurst:  1000,
		Maintenance: maintenance,
		Background:  bg,
	})
	require.NoError(t, err)

	h := &harness{t: t, engine: r, users: users, draws: draws, svc: svc, hook: hook, mr: mr, logPath: logPath}
	h.srv = httptest.NewServer(r)
	t.Cleanup(h.srv.Close)
	return h
}

// browser keeps cookies and does not follow redirects.
func (h *harness) browser() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(h.t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (h *harness) get(c *http.Client, path string) (int, string) {
	h.t.Helper()
	resp, err := c.Get(h.srv.URL + path)
	require.NoError(h.t, err)
	return read(h.t, resp)
}

func (h *harness) post(c *http.Client, path string, form url.Values) (int, string) {
	h.t.Helper()
	resp, err := c.PostForm(h.srv.URL+path, form)
	require.NoError(h.t, err)
	return read(h.t, resp)
}

func read(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if loc := resp.Header.Get("Location"); loc != "" {
		return resp.StatusCode, loc
	}
	return resp.StatusCode, string(b)
}

func (h *harness) createUser(email, password string, role domain.Role) *domain.User {
	h.t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(h.t, err)
	u := &domain.User{Email: email, FirstName: "First", LastName: "Last", Phone: "0191-123-4567", Password: hash, PinKey: seed, Role: role}
	require.NoError(h.t, h.users.Create(context.Background(), u))
	return u
}

func loginForm(email, password, pin string) url.Values {
	return url.Values{"email": {email}, "password": {password}, "pin": {pin}}
}

func code(t *testing.T) string {
	t.Helper()
	c, err := totp.GenerateCode(seed, time.Now())
	require.NoError(t, err)
	return c
}

// login signs a new browser in and returns it.
func (h *harness) login(email, password string) *http.Client {
	h.t.Helper()
	c := h.browser()
	status, _ := h.post(c, "/login", loginForm(email, password, code(h.t)))
	require.Equal(h.t, http.StatusFound, status)
	return c
}

func (h *harness) securityMessages() []string {
	var out []string
	for _, e := range h.hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

func registerForm(email, password string) url.Values {
	return url.Values{
		"email":            {email},
		"firstname":        {"Ada"},
		"lastname":         {"Lovelace"},
		"phone":            {"0191-123-4567"},
		"password":         {password},
		"confirm_password": {password},
		"pin_key":          {seed},
	}
}

func TestRegister(t *testing.T) {
	h := newHarness(t, false)
	c := h.browser()

	status, body := h.get(c, "/register")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `name="pin_key"`)

	status, loc := h.post(c, "/register", registerForm("ada@example.com", "Passw0rd!"))
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", loc)
	assert.Equal(t, 1, h.users.Count())
	assert.Contains(t, h.securityMessages(), "SECURITY - User registration")

	u, err := h.users.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "Passw0rd!", u.Password)

	// the same address again, in another case
	status, body = h.post(c, "/register", registerForm("ADA@example.com", "Passw0rd!"))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Email address already exists")
	assert.Equal(t, 1, h.users.Count())
}

func TestRegisterRejectsInvalidForm(t *testing.T) {
	h := newHarness(t, false)
	c := h.browser()

	for _, pw := range []string{"Pa0!", "password0!", "PASSWORD0!", "Password!!", "Password00"} {
		status, body := h.post(c, "/register", registerForm("ada@example.com", pw))
		assert.Equal(t, http.StatusOK, status, pw)
		assert.Contains(t, body, `class="notification is-danger"`, pw)
	}
	assert.Zero(t, h.users.Count())
}

func TestLoginAttemptCounter(t *testing.T) {
	h := newHarness(t, false)
	h.createUser("player@example.com", "Passw0rd!", domain.RoleUser)
	c := h.browser()

	_, body := h.post(c, "/login", loginForm("player@example.com", "wrong", code(t)))
	assert.Contains(t, body, "2 login attempts remaining")
	_, body = h.post(c, "/login", loginForm("nobody@example.com", "Passw0rd!", code(t)))
	assert.Contains(t, body, "1 login attempt remaining")
	_, body = h.post(c, "/login", loginForm("player@example.com", "wrong", code(t)))
	assert.Contains(t, body, "Number of incorrect logins exceeded")

	// the notice stays but the form is still served
	status, body := h.get(c, "/login")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Number of incorrect logins exceeded")

	// a correct login is still accepted and clears the counter
	status, loc := h.post(c, "/login", loginForm("player@example.com", "Passw0rd!", code(t)))
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/lottery", loc)
	_, body = h.get(c, "/login")
	assert.NotContains(t, body, "Number of incorrect logins exceeded")

	attempts := 0
	for _, m := range h.securityMessages() {
		if m == "SECURITY - Log in attempt" {
			attempts++
		}
	}
	assert.Equal(t, 3, attempts)
	assert.Contains(t, h.securityMessages(), "SECURITY - Log in")

	u, err := h.users.FindByEmail(context.Background(), "player@example.com")
	require.NoError(t, err)
	assert.NotNil(t, u.CurrentLoggedIn)
}

func TestLoginRequiresOneTimeCode(t *testing.T) {
	h := newHarness(t, false)
	h.createUser("player@example.com", "Passw0rd!", domain.RoleUser)
	c := h.browser()

	bad := "000000"
	if code(t) == bad {
		bad = "111111"
	}
	status, body := h.post(c, "/login", loginForm("player@example.com", "Passw0rd!", bad))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "You have supplied an invalid 2FA token")

	status, loc := h.get(c, "/profile")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", loc)
}

func TestLoginBranchesByRole(t *testing.T) {
	h := newHarness(t, false)
	h.createUser("admin@example.com", "Adm1n!pw", domain.RoleAdmin)
	c := h.browser()

	status, loc := h.post(c, "/login", loginForm("admin@example.com", "Adm1n!pw", code(t)))
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/admin", loc)

	status, body := h.get(c, "/admin")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Signed in as First")
}

func TestAuthenticatedPages(t *testing.T) {
	h := newHarness(t, false)
	u := h.createUser("player@example.com", "Passw0rd!", domain.RoleUser)
	c := h.login("player@example.com", "Passw0rd!")

	_, body := h.get(c, "/profile")
	assert.Contains(t, body, "First")
	_, body = h.get(c, "/account")
	assert.Contains(t, body, u.Email)
	assert.Contains(t, body, u.Phone)

	status, loc := h.get(c, "/logout")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/", loc)
	assert.Contains(t, h.securityMessages(), "SECURITY - Log out")

	status, loc = h.get(c, "/account")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", loc)
}

func TestRoleGuards(t *testing.T) {
	h := newHarness(t, false)
	h.createUser("player@example.com", "Passw0rd!", domain.RoleUser)
	h.createUser("admin@example.com", "Adm1n!pw", domain.RoleAdmin)
	player := h.login("player@example.com", "Passw0rd!")
	admin := h.login("admin@example.com", "Adm1n!pw")

	tests := []struct {
		name   string
		client *http.Client
		method string
		path   string
	}{
		{"player on admin page", player, http.MethodGet, "/admin"},
		{"player runs lottery", player, http.MethodPost, "/run_lottery"},
		{"player reads logs", player, http.MethodPost, "/logs"},
		{"player lists users", player, http.MethodPost, "/view_all_users"},
		{"admin on lottery page", admin, http.MethodGet, "/lottery"},
		{"admin adds draw", admin, http.MethodPost, "/add_draw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.hook.Reset()
			var status int
			var body string
			if tt.method == http.MethodGet {
				status, body = h.get(tt.client, tt.path)
			} else {
				status, body = h.post(tt.client, tt.path, url.Values{})
			}
			assert.Equal(t, http.StatusForbidden, status)
			assert.Contains(t, body, "403 Forbidden")
			require.NotNil(t, h.hook.LastEntry())
			assert.Equal(t, "SECURITY - Unauthorised access attempt", h.hook.LastEntry().Message)
			assert.Equal(t, tt.path, h.hook.LastEntry().Data["path"])
		})
	}

	status, loc := h.get(h.browser(), "/lottery")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", loc)
}

func drawForm(numbers string) url.Values {
	v := url.Values{}
	for i, n := range strings.Fields(numbers) {
		v.Set("no"+string(rune('1'+i)), n)
	}
	return v
}

func TestDrawLifecycle(t *testing.T) {
	h := newHarness(t, false)
	h.createUser("admin@example.com", "Adm1n!pw", domain.RoleAdmin)
	alice := h.createUser("alice@example.com", "Passw0rd!", domain.RoleUser)
	bob := h.createUser("bob@example.com", "Passw0rd!", domain.RoleUser)
	admin := h.login("admin@example.com", "Adm1n!pw")
	ac := h.login("alice@example.com", "Passw0rd!")
	bc := h.login("bob@example.com", "Passw0rd!")
	ctx := context.Background()

	_, body := h.get(ac, "/lottery")
	assert.Contains(t, body, `<input name="no1" type="number" min="1" max="60">`)

	_, body = h.post(ac, "/view_draws", nil)
	assert.Contains(t, body, "No playable draws.")
	_, body = h.post(ac, "/add_draw", drawForm("7 7 3 4 5 6"))
	assert.Contains(t, body, "Each number can only be chosen once.")
	_, body = h.post(ac, "/add_draw", drawForm("0 2 3 4 5 61"))
	assert.Contains(t, body, "Numbers must be between 1 and 60.")
	status, body := h.post(ac, "/add_draw", drawForm("one 2 3 4 5 6"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "400 Bad Request")
	assert.Empty(t, h.draws.All())

	// round trip through encrypted storage
	_, body = h.post(ac, "/add_draw", drawForm("4 8 15 16 23 42"))
	assert.Contains(t, body, "Draw 4 8 15 16 23 42 submitted.")
	_, body = h.post(ac, "/view_draws", nil)
	assert.Contains(t, body, "<li>4 8 15 16 23 42</li>")
	assert.NotContains(t, string(h.draws.All()[0].Numbers), "4 8 15")

	_, body = h.post(ac, "/check_draws", nil)
	assert.Contains(t, body, "Next round of lottery yet to play.")

	_, body = h.post(admin, "/run_lottery", nil)
	assert.Contains(t, body, "Current winning draw expired. Add new winning draw for next round.")
	_, body = h.post(admin, "/view_winning_draw", nil)
	assert.Contains(t, body, "No valid winning draw exists. Please add new winning draw.")

	_, body = h.post(admin, "/generate_winning_draw", nil)
	assert.Contains(t, body, "New winning draw")
	winning, err := h.svc.WinningDraw(ctx)
	require.NoError(t, err)
	_, body = h.post(admin, "/view_winning_draw", nil)
	assert.Contains(t, body, winning.Plain)

	// bob plays the winning numbers in reverse order
	nums := strings.Fields(winning.Plain)
	for i, j := 0, len(nums)-1; i < j; i, j = i+1, j-1 {
		nums[i], nums[j] = nums[j], nums[i]
	}
	_, body = h.post(bc, "/add_draw", drawForm(strings.Join(nums, " ")))
	assert.Contains(t, body, "submitted.")

	_, body = h.post(admin, "/run_lottery", nil)
	assert.Contains(t, body, "Round 1 winner: user")
	assert.Contains(t, body, "Round 1 played with 2 entries.")
	_, body = h.post(admin, "/run_lottery", nil)
	assert.Contains(t, body, "Current winning draw expired.")

	_, body = h.post(bc, "/check_draws", nil)
	assert.Contains(t, body, "WIN")
	_, body = h.post(ac, "/check_draws", nil)
	assert.Contains(t, body, "no match")

	// alice plays again, bob's played draw stays
	_, err = h.svc.Submit(ctx, alice.ID, []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	_, body = h.post(ac, "/play_again", nil)
	assert.Contains(t, body, "All played draws deleted.")

	aliceResults, err := h.svc.Results(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, aliceResults)
	alicePlayable, err := h.svc.Playable(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, alicePlayable, 1)
	bobResults, err := h.svc.Results(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, bobResults, 1)
}

func TestAdminListsUsersAndLogs(t *testing.T) {
	h := newHarness(t, false)
	h.createUser("admin@example.com", "Adm1n!pw", domain.RoleAdmin)
	h.createUser("player@example.com", "Passw0rd!", domain.RoleUser)
	admin := h.login("admin@example.com", "Adm1n!pw")

	_, body := h.post(admin, "/view_all_users", nil)
	assert.Contains(t, body, "player@example.com")
	assert.NotContains(t, body, "<td>admin@example.com</td>")
	assert.Contains(t, body, "page 1 of 1, 1 total")
	assert.True(t, h.mr.Exists("admin:users:page=1:size=20"))

	// served from cache until it expires
	h.createUser("late@example.com", "Passw0rd!", domain.RoleUser)
	_, body = h.post(admin, "/view_all_users", nil)
	assert.NotContains(t, body, "late@example.com")
	h.mr.FastForward(61 * time.Second)
	_, body = h.post(admin, "/view_all_users", nil)
	assert.Contains(t, body, "late@example.com")

	_, body = h.post(admin, "/logs", nil)
	assert.Contains(t, body, "SECURITY - Log in")
}

func TestAdminPagingKeepsPageSize(t *testing.T) {
	h := newHarness(t, false)
	h.createUser("admin@example.com", "Adm1n!pw", domain.RoleAdmin)
	for _, email := range []string{"p1@example.com", "p2@example.com", "p3@example.com"} {
		h.createUser(email, "Passw0rd!", domain.RoleUser)
	}
	admin := h.login("admin@example.com", "Adm1n!pw")

	_, body := h.post(admin, "/view_all_users", url.Values{"page_size": {"2"}})
	assert.Contains(t, body, "page 1 of 2, 3 total")
	assert.Contains(t, body, `<input type="hidden" name="page" value="2"><input type="hidden" name="page_size" value="2">`)

	_, body = h.post(admin, "/view_all_users", url.Values{"page": {"2"}, "page_size": {"2"}})
	assert.Contains(t, body, "page 2 of 2, 3 total")
	assert.Contains(t, body, `<input type="hidden" name="page" value="1"><input type="hidden" name="page_size" value="2">`)
}

func TestErrorPages(t *testing.T) {
	h := newHarness(t, false)
	h.engine.GET("/boom", func(*gin.Context) { panic("boom") })
	c := h.browser()

	status, body := h.get(c, "/missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "404 Page Not Found")

	status, body = h.get(c, "/boom")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, "500 Internal Server Error")

	status, body = h.get(c, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "lottery_http_requests_total")
}

func TestMaintenanceMode(t *testing.T) {
	h := newHarness(t, true)
	status, body := h.get(h.browser(), "/")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "503 Service Unavailable")
}
