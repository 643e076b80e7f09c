package studio

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"coroconcept/internal/concept"
	"coroconcept/internal/gallery"
	"coroconcept/internal/generation"
	"coroconcept/internal/navigation"
	"coroconcept/internal/respond"
	"coroconcept/internal/session"
)

const (
	maxLoginBytes    = 4 << 10
	maxGenerateBytes = 40 << 20
	maxItemBytes     = 20 << 20
	maxNavBytes      = 64 << 10

	msgLoginRequired  = "Silakan login terlebih dahulu."
	msgPromptRequired = "Prompt wajib diisi."
	msgImageRequired  = "Silakan upload gambar referensi."
	msgSaved          = "Berhasil disimpan ke Gallery!"
	msgBadRequest     = "Permintaan tidak valid."
	msgStorageFailed  = "Gagal mengakses gallery."
	msgNotFound       = "Konsep tidak ditemukan."
)

func newItemID() string {
	return uuid.New().String()
}

func (s *Service) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return s.RequireLogin(next).ServeHTTP
}

// RequireLogin answers 401 while the session gate is closed.
func (s *Service) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.gate.Authenticated() {
			respond.Error(w, http.StatusUnauthorized, msgLoginRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool `json:"authenticated"`
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(r, maxLoginBytes, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	if err := s.gate.AttemptLogin(r.Context(), req.Username, req.Password); err != nil {
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			respond.Error(w, http.StatusUnauthorized, authErr.Message)
			return
		}
		respond.Error(w, http.StatusUnauthorized, session.MsgInvalidCredentials)
		return
	}
	respond.JSON(w, http.StatusOK, sessionResponse{Authenticated: true})
}

func (s *Service) logout(w http.ResponseWriter, _ *http.Request) {
	s.gate.Logout()
	respond.JSON(w, http.StatusOK, sessionResponse{Authenticated: false})
}

func (s *Service) sessionState(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, sessionResponse{Authenticated: s.gate.Authenticated()})
}

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type modelOption struct {
	Value        string `json:"value"`
	Label        string `json:"label"`
	BackendModel string `json:"backendModel"`
}

type optionsResponse struct {
	AspectRatios       []option      `json:"aspectRatios"`
	DefaultAspectRatio string        `json:"defaultAspectRatio"`
	Models             []modelOption `json:"models"`
}

func (s *Service) options(w http.ResponseWriter, _ *http.Request) {
	resp := optionsResponse{DefaultAspectRatio: concept.DefaultAspectRatio.String()}
	for _, a := range concept.AspectRatios() {
		resp.AspectRatios = append(resp.AspectRatios, option{Value: a.String(), Label: a.Label()})
	}
	for _, m := range concept.ModelChoices() {
		resp.Models = append(resp.Models, modelOption{Value: m.String(), Label: m.Label(), BackendModel: m.BackendModel()})
	}
	respond.JSON(w, http.StatusOK, resp)
}

type generateResponse struct {
	concept.GenerateResponse
	ResultDataURL string `json:"resultDataUrl"`
}

func (s *Service) createConcept(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, false)
}

func (s *Service) createSample(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, true)
}

func (s *Service) generate(w http.ResponseWriter, r *http.Request, needImages bool) {
	var req concept.GenerateRequest
	if err := respond.Decode(r, maxGenerateBytes, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respond.Error(w, http.StatusBadRequest, msgPromptRequired)
		return
	}
	if needImages && len(req.Images) == 0 {
		respond.Error(w, http.StatusBadRequest, msgImageRequired)
		return
	}
	req.AspectRatio = req.AspectRatio.OrDefault()
	if !req.AspectRatio.Valid() || !req.ModelChoice.Valid() {
		respond.Error(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	ctx := generation.WithForwardedFor(r.Context(), s.clientIP.IP(r))
	resp, err := s.generator.Generate(ctx, req)
	if err != nil {
		var genErr *generation.Error
		if errors.As(err, &genErr) {
			respond.Error(w, http.StatusBadGateway, genErr.Message)
			return
		}
		respond.Error(w, http.StatusBadGateway, generation.MsgConnectFailed)
		return
	}
	respond.JSON(w, http.StatusOK, generateResponse{GenerateResponse: resp, ResultDataURL: resp.DataURL()})
}

type listResponse struct {
	Items []gallery.Item `json:"items"`
}

func (s *Service) listGallery(w http.ResponseWriter, r *http.Request) {
	items, err := s.gallery.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list gallery failed")
		respond.Error(w, http.StatusInternalServerError, msgStorageFailed)
		return
	}
	respond.JSON(w, http.StatusOK, listResponse{Items: items})
}

type saveRequest struct {
	Title         string              `json:"title"`
	Prompt        string              `json:"prompt"`
	AspectRatio   concept.AspectRatio `json:"aspectRatio"`
	ModelChoice   concept.ModelChoice `json:"modelChoice"`
	ResultDataURL string              `json:"resultDataUrl"`
}

type saveResponse struct {
	Item    gallery.Item `json:"item"`
	Message string       `json:"message"`
}

func (s *Service) saveGallery(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := respond.Decode(r, maxItemBytes, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	req.AspectRatio = req.AspectRatio.OrDefault()
	if !strings.HasPrefix(req.ResultDataURL, "data:") || !req.AspectRatio.Valid() || !req.ModelChoice.Valid() {
		respond.Error(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	item := gallery.Item{
		ID:            s.newID(),
		Title:         strings.TrimSpace(req.Title),
		Prompt:        req.Prompt,
		AspectRatio:   req.AspectRatio,
		ModelChoice:   req.ModelChoice,
		ResultDataURL: req.ResultDataURL,
		CreatedAt:     s.now().UnixMilli(),
	}
	if err := s.gallery.Save(r.Context(), item); err != nil {
		s.logger.Error().Err(err).Str("item_id", item.ID).Msg("save gallery item failed")
		respond.Error(w, http.StatusInternalServerError, msgStorageFailed)
		return
	}
	respond.JSON(w, http.StatusCreated, saveResponse{Item: item, Message: msgSaved})
}

func (s *Service) deleteGallery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.gallery.Delete(r.Context(), id); err != nil {
		s.logger.Error().Err(err).Str("item_id", id).Msg("delete gallery item failed")
		respond.Error(w, http.StatusInternalServerError, msgStorageFailed)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type navigationResponse struct {
	State   navigation.State `json:"state"`
	Message string           `json:"message,omitempty"`
}

func (s *Service) galleryToSample(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, ok, err := s.gallery.Get(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("item_id", id).Msg("load gallery item failed")
		respond.Error(w, http.StatusInternalServerError, msgStorageFailed)
		return
	}
	if !ok {
		respond.Error(w, http.StatusNotFound, msgNotFound)
		return
	}
	st, msg, err := s.navigator.NavigateToSample(r.Context(), navigation.SampleInit{
		Prompt:      item.Prompt,
		AspectRatio: item.AspectRatio,
		ModelChoice: item.ModelChoice,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("sample hand-off failed")
		respond.Error(w, http.StatusInternalServerError, msgStorageFailed)
		return
	}
	respond.JSON(w, http.StatusOK, navigationResponse{State: st, Message: msg})
}

func (s *Service) currentNavigation(w http.ResponseWriter, r *http.Request) {
	st, err := s.navigator.Current(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("read navigation state failed")
		respond.Error(w, http.StatusInternalServerError, msgStorageFailed)
		return
	}
	respond.JSON(w, http.StatusOK, navigationResponse{State: st})
}

// navigate applies a navigation message. A message carrying sample data is the create view's
// "copy to sample"; one without is a manual tab switch.
func (s *Service) navigate(w http.ResponseWriter, r *http.Request) {
	var msg navigation.Message
	if err := respond.Decode(r, maxNavBytes, &msg); err != nil || !msg.View.Valid() {
		respond.Error(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	var (
		st    navigation.State
		toast string
		err   error
	)
	if msg.View == navigation.ViewSample && msg.Sample != nil {
		st, toast, err = s.navigator.NavigateToSample(r.Context(), *msg.Sample)
	} else {
		st, err = s.navigator.SwitchTab(r.Context(), msg.View)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("view", string(msg.View)).Msg("navigation failed")
		respond.Error(w, http.StatusInternalServerError, msgStorageFailed)
		return
	}
	respond.JSON(w, http.StatusOK, navigationResponse{State: st, Message: toast})
}
