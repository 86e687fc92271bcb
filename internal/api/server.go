package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"wealthsprint/internal/auth"
	"wealthsprint/internal/config"
	"wealthsprint/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
	Token  string
}

// Authenticator is the part of the Supabase client the server uses. A nil
// Authenticator runs the server without auth: any player id is accepted.
type Authenticator interface {
	auth.Verifier
	SignUp(ctx context.Context, email, password string) (auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
}

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	auth Authenticator
	game *game.Service
	hub  *Hub
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authClient Authenticator, gameSvc *game.Service, hub *Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		auth: authClient,
		game: gameSvc,
		hub:  hub,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		if s.auth != nil {
			r.With(middleware.Timeout(60*time.Second)).Post("/auth/signup", s.handleSignup)
			r.With(middleware.Timeout(60*time.Second)).Post("/auth/login", s.handleLogin)
		}
		r.Get("/roles", s.handleRoles)
		r.Get("/sectors", s.handleSectors)

		r.Route("/sessions/{player}", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.playerMiddleware)
			// The stream is long-lived and sits outside the request timeout.
			r.Get("/stream", s.handleStream)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(60 * time.Second))
				r.Get("/", s.handleDashboard)
				r.Get("/roles", s.handlePlayerRoles)
				r.Post("/scenario/next", s.handleNextScenario)
				r.Post("/scenario/choose", s.handleChoose)
				r.Post("/personnel/hire", s.handleHire)
				r.Post("/personnel/{id}/promote", s.handlePromote)
				r.Post("/personnel/{id}/demote", s.handleDemote)
				r.Post("/personnel/{id}/fire", s.handleFire)
				r.Post("/personnel/{id}/sector", s.handleSector)
				r.Post("/personnel/{id}/bonus", s.handleBonus)
				r.Post("/payroll", s.handlePayroll)
				r.Post("/rest", s.handleRest)
				r.Post("/advance", s.handleAdvance)
			})
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			// Browsers cannot set headers on a websocket handshake.
			token = strings.TrimSpace(r.URL.Query().Get("access_token"))
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// playerMiddleware validates the {player} segment and, when auth is on, pins it
// to the caller's own user id.
func (s *Server) playerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		player := chi.URLParam(r, "player")
		if err := game.ValidatePlayerID(player); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if s.auth != nil {
			user, err := userFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if user.UserID != player {
				writeError(w, http.StatusForbidden, "session belongs to another player")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session.User.ID != "" {
		if err := s.game.View(r.Context(), session.User.ID, loadOnly); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRoles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"roles": game.RoleViews(s.game.Catalog().Roles, -1)})
}

func (s *Server) handleSectors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sectors": s.game.Catalog().Roles.Sectors()})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var out game.Dashboard
	err := s.game.View(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		out = sess.Dashboard()
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlayerRoles(w http.ResponseWriter, r *http.Request) {
	var xp int
	err := s.game.View(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		xp = sess.Snapshot().Stats.ClarityXP
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": game.RoleViews(s.game.Catalog().Roles, xp)})
}

func (s *Server) handleNextScenario(w http.ResponseWriter, r *http.Request) {
	var out game.Instance
	err := s.game.Do(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		var err error
		out, err = sess.NextScenario()
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChoose(w http.ResponseWriter, r *http.Request) {
	var in game.ChooseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.InstanceID) == "" || strings.TrimSpace(in.OptionID) == "" {
		writeError(w, http.StatusBadRequest, "instance_id and option_id are required")
		return
	}
	var out game.ChoiceResult
	err := s.game.Do(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		var err error
		out, err = sess.Choose(in.InstanceID, in.OptionID)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHire(w http.ResponseWriter, r *http.Request) {
	var in game.HireInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.RoleID == "" {
		writeError(w, http.StatusBadRequest, "role_id is required")
		return
	}
	var rec game.Record
	err := s.game.Do(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		var err error
		rec, err = sess.Hire(in)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	s.handleRecordOp(w, r, (*game.Session).Promote)
}

func (s *Server) handleDemote(w http.ResponseWriter, r *http.Request) {
	s.handleRecordOp(w, r, (*game.Session).Demote)
}

func (s *Server) handleFire(w http.ResponseWriter, r *http.Request) {
	s.handleRecordOp(w, r, (*game.Session).Fire)
}

func (s *Server) handleRecordOp(w http.ResponseWriter, r *http.Request, op func(*game.Session, string) (game.Record, error)) {
	id := chi.URLParam(r, "id")
	var rec game.Record
	err := s.game.Do(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		var err error
		rec, err = op(sess, id)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSector(w http.ResponseWriter, r *http.Request) {
	var in game.SectorInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	var rec game.Record
	err := s.game.Do(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		var err error
		rec, err = sess.AssignSector(id, in.Sector)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleBonus(w http.ResponseWriter, r *http.Request) {
	var in game.BonusInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	var out game.BonusResult
	err := s.game.Do(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		rec, paid, err := sess.GiveBonus(id, in.Amount)
		if err != nil {
			return err
		}
		out = game.BonusResult{Staff: game.NewStaffView(rec), Paid: paid}
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePayroll reports a missed payroll as a normal result; the morale hit
// has already been applied and saved.
func (s *Server) handlePayroll(w http.ResponseWriter, r *http.Request) {
	var out game.PayrollReport
	err := s.game.Do(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		var err error
		out, err = sess.RunPayroll()
		if out.Missed && errors.Is(err, game.ErrInsufficientFunds) {
			return nil
		}
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRest(w http.ResponseWriter, r *http.Request) {
	var out game.Snapshot
	err := s.game.Do(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		var err error
		out, err = sess.Rest()
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var in game.AdvanceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var out game.AdvanceReport
	err := s.game.Do(r.Context(), chi.URLParam(r, "player"), func(sess *game.Session) error {
		var err error
		out, err = sess.Advance(in.Years)
		return err
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	// Load first so a stream for a corrupt save fails before the upgrade.
	if err := s.game.View(r.Context(), player, loadOnly); err != nil {
		writeDomainError(w, err)
		return
	}
	s.hub.serve(w, r, player)
}

func loadOnly(*game.Session) error { return nil }

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds), errors.Is(err, game.ErrNotEligible):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, game.ErrRoleLocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrUnknownOption), errors.Is(err, game.ErrUnknownSector), errors.Is(err, game.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrGameEnded):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
