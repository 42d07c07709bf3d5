package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stillcare/carefront/pkg/dataservice"
	"github.com/stillcare/carefront/pkg/disclosure"
	"github.com/stillcare/carefront/pkg/forms"
	"github.com/stillcare/carefront/pkg/formview"
	"github.com/stillcare/carefront/pkg/model"
	"github.com/stillcare/carefront/pkg/render"
	"github.com/stillcare/carefront/pkg/requestid"
)

const maxMultipartMemory = 32 << 20

type formHandler struct {
	server *Server
}

type formSummary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Endpoint string   `json:"endpoint"`
	Triggers []string `json:"triggers,omitempty"`
}

// StateRequest is the body of POST /forms/{formID}/state.
type StateRequest struct {
	Values  map[string]any `json:"values"`
	Changed string         `json:"changed,omitempty"`
}

// StateResponse carries the field states after the rules ran.
type StateResponse struct {
	Form   string           `json:"form"`
	States []formview.State `json:"states"`
	Values map[string]any   `json:"values"`
}

// List returns the catalogue.
func (h *formHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := h.server.catalogue.IDs()
	out := make([]formSummary, 0, len(ids))
	for _, id := range ids {
		form, err := h.server.catalogue.Form(id)
		if err != nil {
			continue
		}
		summary := formSummary{ID: id, Title: form.Title, Endpoint: form.Endpoint}
		if d := h.server.disclosers[id]; d != nil {
			summary.Triggers = d.Triggers()
		}
		out = append(out, summary)
	}
	writeJSON(w, http.StatusOK, out)
}

// Show renders a form with its initial disclosure state. Query parameters
// seed the persisted values.
func (h *formHandler) Show(w http.ResponseWriter, r *http.Request) {
	view, d, ok := h.open(w, r)
	if !ok {
		return
	}
	if len(r.URL.Query()) > 0 {
		view.Load(queryValues(r.URL.Query()))
	}
	if d != nil {
		d.Init(view)
	}
	h.render(w, r, http.StatusOK, view.Form(), d, render.ErrorMapping{})
}

// State applies the rules to the posted values and returns every field's
// state.
func (h *formHandler) State(w http.ResponseWriter, r *http.Request) {
	view, d, ok := h.open(w, r)
	if !ok {
		return
	}

	var req StateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Changed != "" {
		if !view.Has(req.Changed) {
			writeError(w, http.StatusBadRequest, "unknown field "+req.Changed)
			return
		}
		if d == nil || !d.IsTrigger(req.Changed) {
			writeError(w, http.StatusBadRequest, "field "+req.Changed+" does not trigger any rule")
			return
		}
	}

	view.Load(req.Values)
	if d != nil {
		d.Init(view)
		if req.Changed != "" {
			d.Changed(view, req.Changed)
		}
	}

	writeJSON(w, http.StatusOK, StateResponse{
		Form:   view.Form().ID,
		States: view.States(),
		Values: view.Values(),
	})
}

// Submit forwards the posted form to the data service. Field errors from
// the backend re-render the form with the messages attached.
func (h *formHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.server.submitter == nil {
		writeError(w, http.StatusNotImplemented, "submission is not configured")
		return
	}
	view, d, ok := h.open(w, r)
	if !ok {
		return
	}

	posted, uploads, err := postedValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	view.Load(posted)
	if d != nil {
		d.Init(view)
	}

	form := view.Form()
	values := view.Values()
	for key, upload := range uploads {
		field, ok := form.Field(key)
		if !ok || field.Kind != model.FieldKindFile {
			writeError(w, http.StatusBadRequest, "unexpected file "+key)
			return
		}
		// Concealed file fields submit null like every other hidden field.
		if values[key] != nil {
			values[key] = upload
		}
	}

	result, err := h.server.submitter.Submit(r.Context(), form.Endpoint, values)
	if err != nil {
		var opErr *dataservice.OperationError
		if errors.As(err, &opErr) && len(opErr.Fields) > 0 {
			h.render(w, r, http.StatusUnprocessableEntity, form, d, render.MapErrors(*form, opErr.Fields))
			return
		}
		h.server.logger.Error("form submission failed",
			zap.String("form", form.ID),
			zap.String("request_id", requestid.From(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "submission failed")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// open clones the requested form into a fresh view. The discloser is nil
// for forms without a rule table.
func (h *formHandler) open(w http.ResponseWriter, r *http.Request) (*formview.View, *disclosure.Discloser, bool) {
	id := chi.URLParam(r, "formID")
	form, err := h.server.catalogue.Form(id)
	if err != nil {
		if errors.Is(err, forms.ErrUnknownForm) {
			writeError(w, http.StatusNotFound, "form not found")
			return nil, nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load form")
		return nil, nil, false
	}
	return formview.New(&form), h.server.disclosers[id], true
}

func (h *formHandler) render(w http.ResponseWriter, r *http.Request, status int, form *model.Form, d *disclosure.Discloser, errs render.ErrorMapping) {
	renderer, err := h.server.renderers.Negotiate(r.Header.Get("Accept"))
	if err != nil {
		writeError(w, http.StatusNotAcceptable, err.Error())
		return
	}

	options := render.Options{
		Action:   "/forms/" + form.ID,
		StateURL: "/forms/" + form.ID + "/state",
		Errors:   errs,
	}
	if d != nil {
		options.Triggers = d.Triggers()
	}

	body, err := renderer.Render(r.Context(), *form, options)
	if err != nil {
		h.server.logger.Error("render form",
			zap.String("form", form.ID),
			zap.String("renderer", renderer.Name()),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to render form")
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// postedValues decodes a JSON, urlencoded or multipart body. File parts
// are returned separately; their filenames also seed the field values so
// the view sees the field as filled.
func postedValues(r *http.Request) (map[string]any, map[string]dataservice.Upload, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var values map[string]any
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			return nil, nil, err
		}
		return values, nil, nil
	}
	if !strings.HasPrefix(contentType, "multipart/") {
		if err := r.ParseForm(); err != nil {
			return nil, nil, err
		}
		return queryValues(r.PostForm), nil, nil
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, err
	}
	values := queryValues(r.PostForm)
	uploads := make(map[string]dataservice.Upload, len(r.MultipartForm.File))
	for key, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		upload, err := readUpload(headers[0])
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", key, err)
		}
		uploads[key] = upload
		values[key] = upload.Filename
	}
	return values, uploads, nil
}

func readUpload(header *multipart.FileHeader) (dataservice.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return dataservice.Upload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxMultipartMemory+1))
	if err != nil {
		return dataservice.Upload{}, err
	}
	if len(data) > maxMultipartMemory {
		return dataservice.Upload{}, errors.New("file too large")
	}
	return dataservice.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func queryValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		out[key] = vals
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
