package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/fleetpeer/internal/hub/convert"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/model"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/service"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
)

func (s *Server) createDriver(w http.ResponseWriter, r *http.Request) {
	var body v1.CreateDriverRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeErr(w, r, err)
		return
	}

	user, err := s.svc.CreateDriver(r.Context(), principalFrom(r.Context()), &service.CreateDriverRequest{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		AdminID:  body.AdminID,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, v1.CreateDriverResponse{
		Success: true,
		Message: "Driver account created",
		User:    v1.UserSummary{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var body v1.SignInRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeErr(w, r, err)
		return
	}

	res, err := s.svc.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, v1.SignInResponse{
		Token:     res.Token,
		ExpiresAt: res.Session.ExpiresAt,
		Profile:   convert.Profile(res.Profile),
	})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.SignOut(r.Context(), principalFrom(r.Context())); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	profile, err := s.svc.Profile(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.Profile(profile))
}

func (s *Server) reportPosition(w http.ResponseWriter, r *http.Request) {
	var body v1.Position
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeErr(w, r, err)
		return
	}

	stored, err := s.svc.ReportPosition(r.Context(), principalFrom(r.Context()), convert.PositionFromV1(&body), service.SourceHTTP)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.Position(stored))
}

func (s *Server) roster(w http.ResponseWriter, r *http.Request) {
	roster, err := s.svc.RosterFor(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.Roster(roster))
}

func (s *Server) driverPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := s.svc.LatestPosition(r.Context(), principalFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.Position(pos))
}

func (s *Server) exportRoster(w http.ResponseWriter, r *http.Request) {
	exp, err := s.svc.ExportRoster(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.Export(exp))
}

func (s *Server) changes(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	switch {
	case p.Role != model.RoleAdmin:
		s.writeErr(w, r, model.ErrForbidden)
		return
	case p.OrganizationID == "":
		s.writeErr(w, r, model.ErrNoOrganization)
		return
	}
	s.broker.ServeWS(w, r, p.OrganizationID)
}
