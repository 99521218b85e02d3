package web

import (
    "crypto/sha256"
    "crypto/subtle"
    "embed"
    "encoding/hex"
    "html/template"
    "net/http"

    "github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templatesFS embed.FS

const cookieName = "ravi_auth"

// Options configures the browser UI. Login is enabled only when both
// Username and Password are set.
type Options struct {
    Username string
    Password string
}

type Web struct {
    tpl      *template.Template
    username string
    password string
}

func New(opts Options) *Web {
    tpl := template.Must(template.ParseFS(templatesFS, "templates/*.html"))
    return &Web{tpl: tpl, username: opts.Username, password: opts.Password}
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/login", w.handleLogin)
    mux.HandleFunc("/logout", w.handleLogout)
    mux.HandleFunc("/", w.requireAuth(w.handleIndex))
}

// AuthEnabled reports whether a login is required.
func (w *Web) AuthEnabled() bool { return w.username != "" && w.password != "" }

// Protect guards an API handler with the login cookie. Unauthenticated
// requests get 401 with a JSON error body.
func (w *Web) Protect(next http.Handler) http.Handler {
    return http.HandlerFunc(func(wr http.ResponseWriter, r *http.Request) {
        if w.authorized(r) {
            next.ServeHTTP(wr, r)
            return
        }
        wr.Header().Set("Content-Type", "application/json")
        wr.WriteHeader(http.StatusUnauthorized)
        _, _ = wr.Write([]byte(`{"error":"login required"}`))
    })
}

func (w *Web) render(wr http.ResponseWriter, name string, data any) {
    wr.Header().Set("Content-Type", "text/html; charset=utf-8")
    if err := w.tpl.ExecuteTemplate(wr, name, data); err != nil {
        log.Error().Err(err).Str("template", name).Msg("render failed")
    }
}

// token is the cookie value for the configured credentials.
func (w *Web) token() string {
    sum := sha256.Sum256([]byte(w.username + "\x00" + w.password))
    return hex.EncodeToString(sum[:])
}

func (w *Web) authorized(r *http.Request) bool {
    if !w.AuthEnabled() {
        return true
    }
    c, err := r.Cookie(cookieName)
    if err != nil {
        return false
    }
    return subtle.ConstantTimeCompare([]byte(c.Value), []byte(w.token())) == 1
}

func (w *Web) requireAuth(next http.HandlerFunc) http.HandlerFunc {
    return func(wr http.ResponseWriter, r *http.Request) {
        if !w.authorized(r) {
            http.Redirect(wr, r, "/login", http.StatusSeeOther)
            return
        }
        next(wr, r)
    }
}

func (w *Web) handleLogin(wr http.ResponseWriter, r *http.Request) {
    if !w.AuthEnabled() {
        http.Redirect(wr, r, "/", http.StatusSeeOther)
        return
    }
    switch r.Method {
    case http.MethodGet:
        w.render(wr, "login.html", map[string]any{"Error": r.URL.Query().Get("error")})
    case http.MethodPost:
        if err := r.ParseForm(); err != nil { http.Redirect(wr, r, "/login?error=invalid+form", http.StatusSeeOther); return }
        user := subtle.ConstantTimeCompare([]byte(r.Form.Get("username")), []byte(w.username)) == 1
        pass := subtle.ConstantTimeCompare([]byte(r.Form.Get("password")), []byte(w.password)) == 1
        if user && pass {
            http.SetCookie(wr, &http.Cookie{Name: cookieName, Value: w.token(), Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
            http.Redirect(wr, r, "/", http.StatusSeeOther)
            return
        }
        log.Warn().Str("remote", r.RemoteAddr).Msg("failed login")
        http.Redirect(wr, r, "/login?error=invalid+credentials", http.StatusSeeOther)
    default:
        wr.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (w *Web) handleLogout(wr http.ResponseWriter, r *http.Request) {
    http.SetCookie(wr, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
    http.Redirect(wr, r, "/login", http.StatusSeeOther)
}

func (w *Web) handleIndex(wr http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/" {
        http.NotFound(wr, r)
        return
    }
    w.render(wr, "index.html", map[string]any{
        "Username": w.username,
        "Auth":     w.AuthEnabled(),
    })
}
