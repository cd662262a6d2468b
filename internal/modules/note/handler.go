package note

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/notes-api/internal/contextx"
	"github.com/delordemm1/notes-api/internal/httpx"
)

// Handler serves the notes API. Every route requires a bearer token.
type Handler struct {
	service     Service
	logger      *slog.Logger
	requireAuth func(huma.Context, func(huma.Context))
}

// NewHandler creates a new handler for the note module.
func NewHandler(service Service, logger *slog.Logger, requireAuth func(huma.Context, func(huma.Context))) *Handler {
	return &Handler{service: service, logger: logger, requireAuth: requireAuth}
}

// RegisterRoutes mounts the note endpoints under /api/notes.
func (h *Handler) RegisterRoutes(api huma.API) {
	private := huma.Middlewares{h.requireAuth}
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(api, huma.Operation{
		OperationID: "notes-list",
		Method:      http.MethodGet,
		Path:        "/api/notes",
		Summary:     "List notes",
		Tags:        []string{"Notes"},
		Security:    bearer,
		Middlewares: private,
	}, h.ListHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "notes-create",
		Method:        http.MethodPost,
		Path:          "/api/notes",
		Summary:       "Create a note",
		Tags:          []string{"Notes"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
		Middlewares:   private,
	}, h.CreateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "notes-update",
		Method:      http.MethodPut,
		Path:        "/api/notes/{id}",
		Summary:     "Update a note",
		Tags:        []string{"Notes"},
		Security:    bearer,
		Middlewares: private,
	}, h.UpdateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "notes-delete",
		Method:      http.MethodDelete,
		Path:        "/api/notes/{id}",
		Summary:     "Delete a note",
		Tags:        []string{"Notes"},
		Security:    bearer,
		Middlewares: private,
	}, h.DeleteHandler)
}

// --- DTOs ---

type NoteBody struct {
	Title   string `json:"title,omitempty" doc:"1 to 200 characters"`
	Content string `json:"content,omitempty" doc:"1 to 5000 characters"`
}

type ListResponse struct {
	Body struct {
		Notes []*Note `json:"notes"`
	}
}

type CreateRequest struct {
	Body NoteBody
}

type UpdateRequest struct {
	ID   string `path:"id"`
	Body NoteBody
}

type DeleteRequest struct {
	ID string `path:"id"`
}

type NoteResponse struct {
	Body struct {
		Message string `json:"message"`
		Note    *Note  `json:"note"`
	}
}

type MessageResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

// --- Handlers ---

func accountFrom(ctx context.Context) (string, error) {
	id, ok := contextx.AccountID(ctx)
	if !ok {
		return "", httpx.UnauthorizedProblem(ctx, "missing authenticated account")
	}
	return id, nil
}

func (h *Handler) ListHandler(ctx context.Context, _ *struct{}) (*ListResponse, error) {
	accountID, err := accountFrom(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := h.service.List(ctx, accountID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	out := &ListResponse{}
	out.Body.Notes = notes
	return out, nil
}

func (h *Handler) CreateHandler(ctx context.Context, input *CreateRequest) (*NoteResponse, error) {
	accountID, err := accountFrom(ctx)
	if err != nil {
		return nil, err
	}
	n, err := h.service.Create(ctx, accountID, input.Body.Title, input.Body.Content)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	out := &NoteResponse{}
	out.Body.Message = "Note created successfully"
	out.Body.Note = n
	return out, nil
}

func (h *Handler) UpdateHandler(ctx context.Context, input *UpdateRequest) (*NoteResponse, error) {
	accountID, err := accountFrom(ctx)
	if err != nil {
		return nil, err
	}
	n, err := h.service.Update(ctx, accountID, input.ID, input.Body.Title, input.Body.Content)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	out := &NoteResponse{}
	out.Body.Message = "Note updated successfully"
	out.Body.Note = n
	return out, nil
}

func (h *Handler) DeleteHandler(ctx context.Context, input *DeleteRequest) (*MessageResponse, error) {
	accountID, err := accountFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.service.Delete(ctx, accountID, input.ID); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	out := &MessageResponse{}
	out.Body.Message = "Note deleted successfully"
	return out, nil
}
