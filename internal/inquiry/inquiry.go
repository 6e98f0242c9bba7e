// Package inquiry stores user-submitted feedback and the state of its
// handling.
package inquiry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

const collectionInquiries = "inquiries"

// Status tracks an inquiry through the handling workflow.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusNotRequired Status = "not_required"
)

func validStatus(s Status) bool {
	switch s {
	case StatusUnconfirmed, StatusInProgress, StatusCompleted, StatusNotRequired:
		return true
	}
	return false
}

// Type classifies what kind of feedback an inquiry carries. It is
// optional; older inquiries predate the classification.
type Type string

const (
	TypeOpinion   Type = "opinion"
	TypeRequest   Type = "request"
	TypeBugReport Type = "bug_report"
)

func validType(t Type) bool {
	switch t {
	case TypeOpinion, TypeRequest, TypeBugReport:
		return true
	}
	return false
}

type Inquiry struct {
	ID        string
	Content   string
	UserID    string
	CreatedAt time.Time
	Status    Status
	Type      Type
}

// Repository persists inquiries in the inquiries collection.
type Repository struct {
	store  docstore.Store
	logger *observability.Logger
	newID  func() string
	now    func() time.Time
}

func NewRepository(store docstore.Store, logger *observability.Logger) *Repository {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Repository{
		store:  store,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Create files a new inquiry and returns its assigned id. New inquiries
// always start unconfirmed. The user id may be empty, anonymous
// feedback is allowed.
func (r *Repository) Create(ctx context.Context, userID, content string, typ Type) (string, error) {
	if content == "" {
		return "", docstore.Errorf(docstore.InvalidArgument, "inquiries: content is required")
	}
	if typ != "" && !validType(typ) {
		return "", docstore.Errorf(docstore.InvalidArgument, "inquiries: unknown type %q", typ)
	}
	id := r.newID()
	data := map[string]any{
		"content":   content,
		"userId":    userID,
		"createdAt": r.now().UTC(),
		"status":    string(StatusUnconfirmed),
	}
	if typ != "" {
		data["type"] = string(typ)
	}
	if err := r.store.Set(ctx, collectionInquiries, id, data, docstore.SetOptions{}); err != nil {
		r.logger.LogError(ctx, "inquiry creation failed", err, "user", userID)
		return "", err
	}
	r.logger.LogInfo(ctx, "inquiry filed", "inquiry", id, "user", userID)
	return id, nil
}

// All returns every inquiry, newest first. This is the admin view.
func (r *Repository) All(ctx context.Context) ([]Inquiry, error) {
	return r.list(ctx, docstore.Query{OrderBy: "createdAt", Desc: true})
}

// ByUser returns one user's inquiries, newest first.
func (r *Repository) ByUser(ctx context.Context, userID string) ([]Inquiry, error) {
	if userID == "" {
		return nil, docstore.Errorf(docstore.InvalidArgument, "inquiries: user id is required")
	}
	return r.list(ctx, docstore.Query{
		OrderBy: "createdAt",
		Desc:    true,
		Filters: []docstore.Filter{{Field: "userId", Value: userID}},
	})
}

func (r *Repository) list(ctx context.Context, q docstore.Query) ([]Inquiry, error) {
	docs, err := r.store.GetAll(ctx, collectionInquiries, q)
	if err != nil {
		return nil, err
	}
	inquiries := make([]Inquiry, 0, len(docs))
	for _, doc := range docs {
		inquiries = append(inquiries, parseInquiry(doc.Data, doc.ID))
	}
	return inquiries, nil
}

// Get returns a single inquiry by id. A missing inquiry is reported
// through the bool, not as an error.
func (r *Repository) Get(ctx context.Context, id string) (Inquiry, bool, error) {
	if id == "" {
		return Inquiry{}, false, docstore.Errorf(docstore.InvalidArgument, "inquiries: id is required")
	}
	doc, err := r.store.Get(ctx, collectionInquiries, id)
	if err != nil {
		if docstore.IsNotFound(err) {
			return Inquiry{}, false, nil
		}
		return Inquiry{}, false, err
	}
	return parseInquiry(doc.Data, doc.ID), true, nil
}

// UpdateStatus moves an inquiry through the handling workflow. Only the
// status field is touched.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status) error {
	if id == "" {
		return docstore.Errorf(docstore.InvalidArgument, "inquiries: id is required")
	}
	if !validStatus(status) {
		return docstore.Errorf(docstore.InvalidArgument, "inquiries: unknown status %q", status)
	}
	return r.store.Set(ctx, collectionInquiries, id, map[string]any{
		"status": string(status),
	}, docstore.SetOptions{Merge: true})
}

// parseInquiry tolerates malformed documents: an unknown status falls
// back to unconfirmed and an unknown type is dropped, so one bad
// document cannot break the admin view.
func parseInquiry(data map[string]any, id string) Inquiry {
	inq := Inquiry{ID: id, Status: StatusUnconfirmed}
	if v, ok := data["content"].(string); ok {
		inq.Content = v
	}
	if v, ok := data["userId"].(string); ok {
		inq.UserID = v
	}
	if ts, ok := timeValue(data["createdAt"]); ok {
		inq.CreatedAt = ts
	}
	if v, ok := data["status"].(string); ok && validStatus(Status(v)) {
		inq.Status = Status(v)
	}
	if v, ok := data["type"].(string); ok && validType(Type(v)) {
		inq.Type = Type(v)
	}
	return inq
}

// timeValue accepts native time values and RFC3339 strings, the two
// encodings timestamps survive storage round trips in.
func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
