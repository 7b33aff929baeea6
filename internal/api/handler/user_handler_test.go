package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/ports"
)

type stubUserService struct {
	getFn         func(ctx context.Context, id string) (*domain.User, error)
	listFn        func(ctx context.Context, page, perPage int) (*ports.UserPage, error)
	searchFn      func(ctx context.Context, term string, page, perPage int) (*ports.UserPage, error)
	registerFn    func(ctx context.Context, input ports.RegisterInput) (*domain.User, error)
	updateFn      func(ctx context.Context, p domain.Principal, id string, input ports.UpdateUserInput) (*domain.User, error)
	deleteFn      func(ctx context.Context, p domain.Principal, id string) error
	setPhotoFn    func(ctx context.Context, p domain.Principal, id, filename string, data []byte) (*domain.User, error)
	removePhotoFn func(ctx context.Context, p domain.Principal, id string) (*domain.User, error)
}

func (s *stubUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) List(ctx context.Context, page, perPage int) (*ports.UserPage, error) {
	return s.listFn(ctx, page, perPage)
}

func (s *stubUserService) Search(ctx context.Context, term string, page, perPage int) (*ports.UserPage, error) {
	return s.searchFn(ctx, term, page, perPage)
}

func (s *stubUserService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, input)
}

func (s *stubUserService) Update(ctx context.Context, p domain.Principal, id string, input ports.UpdateUserInput) (*domain.User, error) {
	return s.updateFn(ctx, p, id, input)
}

func (s *stubUserService) Delete(ctx context.Context, p domain.Principal, id string) error {
	return s.deleteFn(ctx, p, id)
}

func (s *stubUserService) SetPhoto(ctx context.Context, p domain.Principal, id, filename string, data []byte) (*domain.User, error) {
	return s.setPhotoFn(ctx, p, id, filename, data)
}

func (s *stubUserService) RemovePhoto(ctx context.Context, p domain.Principal, id string) (*domain.User, error) {
	return s.removePhotoFn(ctx, p, id)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sampleUser() *domain.User {
	return &domain.User{
		ID:          "user_1",
		Email:       "carol@example.com",
		Username:    "carol",
		PhoneNumber: "234-8031234567",
		Roles:       []string{domain.RoleRegular},
	}
}

func TestUserHandler_Get_OK(t *testing.T) {
	svc := &stubUserService{getFn: func(_ context.Context, id string) (*domain.User, error) {
		if id != "user_1" {
			t.Fatalf("unexpected id: %s", id)
		}
		return sampleUser(), nil
	}}
	h := NewUserHandler(svc)

	c, rec := jsonContext(newTestEcho(), http.MethodGet, "/api/v1/users/user_1", "")
	c.SetParamNames("id")
	c.SetParamValues("user_1")

	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "user_1" || resp.Email != "carol@example.com" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	svc := &stubUserService{getFn: func(_ context.Context, _ string) (*domain.User, error) {
		return nil, domain.ErrUserNotFound
	}}
	h := NewUserHandler(svc)

	c, rec := jsonContext(newTestEcho(), http.MethodGet, "/api/v1/users/ghost", "")
	c.SetParamNames("id")
	c.SetParamValues("ghost")

	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUserHandler_List_PassesPagination(t *testing.T) {
	svc := &stubUserService{listFn: func(_ context.Context, page, perPage int) (*ports.UserPage, error) {
		if page != 2 || perPage != 5 {
			t.Fatalf("pagination not forwarded: page=%d per_page=%d", page, perPage)
		}
		return &ports.UserPage{
			Items:      []domain.User{*sampleUser()},
			Total:      11,
			Page:       2,
			PerPage:    5,
			TotalPages: 3,
		}, nil
	}}
	h := NewUserHandler(svc)

	c, rec := jsonContext(newTestEcho(), http.MethodGet, "/api/v1/users?page=2&per_page=5", "")
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp listUsersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Pagination.Total != 11 || resp.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected page shape: %+v", resp)
	}
}

func TestUserHandler_Search_RequiresTerm(t *testing.T) {
	svc := &stubUserService{searchFn: func(_ context.Context, _ string, _, _ int) (*ports.UserPage, error) {
		t.Fatalf("service must not be called without a term")
		return nil, nil
	}}
	h := NewUserHandler(svc)

	c, rec := jsonContext(newTestEcho(), http.MethodGet, "/api/v1/users/search", "")
	if err := h.Search(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUserHandler_Search_OK(t *testing.T) {
	svc := &stubUserService{searchFn: func(_ context.Context, term string, _, _ int) (*ports.UserPage, error) {
		if term != "carol@example.com" {
			t.Fatalf("term not forwarded: %s", term)
		}
		return &ports.UserPage{Items: []domain.User{*sampleUser()}, Total: 1, Page: 1, PerPage: 20, TotalPages: 1}, nil
	}}
	h := NewUserHandler(svc)

	c, rec := jsonContext(newTestEcho(), http.MethodGet, "/api/v1/users/search?q=carol%40example.com", "")
	if err := h.Search(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUserHandler_Register_Created(t *testing.T) {
	svc := &stubUserService{registerFn: func(_ context.Context, input ports.RegisterInput) (*domain.User, error) {
		if input.Email != "carol@example.com" || input.Username != "carol" {
			t.Fatalf("input not forwarded: %+v", input)
		}
		return sampleUser(), nil
	}}
	h := NewUserHandler(svc)

	body := `{"email":"carol@example.com","username":"carol","password":"longenough","phone_number":"234-8031234567"}`
	c, rec := jsonContext(newTestEcho(), http.MethodPost, "/api/v1/users", body)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUserHandler_Register_ValidationFailures(t *testing.T) {
	svc := &stubUserService{registerFn: func(_ context.Context, _ ports.RegisterInput) (*domain.User, error) {
		t.Fatalf("service must not be called")
		return nil, nil
	}}
	h := NewUserHandler(svc)

	cases := []struct {
		name string
		body string
	}{
		{"short password", `{"email":"a@b.com","username":"abc","password":"short"}`},
		{"bad phone", `{"email":"a@b.com","username":"abc","password":"longenough","phone_number":"0803123"}`},
		{"short username", `{"email":"a@b.com","username":"ab","password":"longenough"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := jsonContext(newTestEcho(), http.MethodPost, "/api/v1/users", tc.body)
			if err := h.Register(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestUserHandler_Register_DuplicateEmail(t *testing.T) {
	svc := &stubUserService{registerFn: func(_ context.Context, _ ports.RegisterInput) (*domain.User, error) {
		return nil, domain.ErrEmailTaken
	}}
	h := NewUserHandler(svc)

	body := `{"email":"carol@example.com","username":"carol","password":"longenough"}`
	c, rec := jsonContext(newTestEcho(), http.MethodPost, "/api/v1/users", body)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestUserHandler_Update_ForwardsPrincipal(t *testing.T) {
	svc := &stubUserService{updateFn: func(_ context.Context, p domain.Principal, id string, input ports.UpdateUserInput) (*domain.User, error) {
		if p.Subject != "user_1" {
			t.Fatalf("principal not forwarded: %+v", p)
		}
		if id != "user_1" || input.Username != "newname" {
			t.Fatalf("unexpected update args: id=%s input=%+v", id, input)
		}
		u := sampleUser()
		u.Username = input.Username
		return u, nil
	}}
	h := NewUserHandler(svc)

	c, rec := jsonContext(newTestEcho(), http.MethodPut, "/api/v1/users/user_1", `{"username":"newname"}`)
	c.SetParamNames("id")
	c.SetParamValues("user_1")
	c.Set("principal", domain.Principal{Subject: "user_1", Roles: []string{domain.RoleRegular}})

	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUserHandler_Update_Forbidden(t *testing.T) {
	svc := &stubUserService{updateFn: func(_ context.Context, _ domain.Principal, _ string, _ ports.UpdateUserInput) (*domain.User, error) {
		return nil, domain.ErrForbidden
	}}
	h := NewUserHandler(svc)

	c, rec := jsonContext(newTestEcho(), http.MethodPut, "/api/v1/users/user_1", `{"username":"newname"}`)
	c.SetParamNames("id")
	c.SetParamValues("user_1")
	c.Set("principal", domain.Principal{Subject: "user_2", Roles: []string{domain.RoleRegular}})

	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUserHandler_Update_MissingPrincipal(t *testing.T) {
	svc := &stubUserService{updateFn: func(_ context.Context, _ domain.Principal, _ string, _ ports.UpdateUserInput) (*domain.User, error) {
		t.Fatalf("service must not be called")
		return nil, nil
	}}
	h := NewUserHandler(svc)

	e := newTestEcho()
	c, rec := jsonContext(e, http.MethodPut, "/api/v1/users/user_1", `{"username":"newname"}`)
	c.SetParamNames("id")
	c.SetParamValues("user_1")

	if err := h.Update(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUserHandler_Delete(t *testing.T) {
	deleted := map[string]bool{}
	svc := &stubUserService{deleteFn: func(_ context.Context, p domain.Principal, id string) error {
		if !p.HasRole(domain.RoleAdmin) {
			return domain.ErrForbidden
		}
		if deleted[id] {
			return domain.ErrUserNotFound
		}
		deleted[id] = true
		return nil
	}}
	h := NewUserHandler(svc)
	e := newTestEcho()

	admin := domain.Principal{Subject: "admin_1", Roles: []string{domain.RoleAdmin}}

	c, rec := jsonContext(e, http.MethodDelete, "/api/v1/users/user_1", "")
	c.SetParamNames("id")
	c.SetParamValues("user_1")
	c.Set("principal", admin)
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	// Deleting again reports not found.
	c, rec = jsonContext(e, http.MethodDelete, "/api/v1/users/user_1", "")
	c.SetParamNames("id")
	c.SetParamValues("user_1")
	c.Set("principal", admin)
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func photoContext(e *echo.Echo, t *testing.T, field, filename string, content []byte) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/user_1/photo", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestUserHandler_SetPhoto_OK(t *testing.T) {
	svc := &stubUserService{setPhotoFn: func(_ context.Context, p domain.Principal, id, filename string, data []byte) (*domain.User, error) {
		if p.Subject != "user_1" || id != "user_1" {
			t.Fatalf("unexpected photo args: principal=%+v id=%s", p, id)
		}
		if filename != "avatar.png" || string(data) != "png-bytes" {
			t.Fatalf("file not forwarded: %s %q", filename, data)
		}
		u := sampleUser()
		u.PhotoURL = "https://img.example.com/avatar.png"
		return u, nil
	}}
	h := NewUserHandler(svc)

	e := newTestEcho()
	c, rec := photoContext(e, t, "photo", "avatar.png", []byte("png-bytes"))
	c.SetParamNames("id")
	c.SetParamValues("user_1")
	c.Set("principal", domain.Principal{Subject: "user_1", Roles: []string{domain.RoleRegular}})

	if err := h.SetPhoto(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PhotoURL != "https://img.example.com/avatar.png" {
		t.Fatalf("photo url missing from response: %+v", resp)
	}
}

func TestUserHandler_SetPhoto_MissingFile(t *testing.T) {
	svc := &stubUserService{setPhotoFn: func(_ context.Context, _ domain.Principal, _, _ string, _ []byte) (*domain.User, error) {
		t.Fatalf("service must not be called")
		return nil, nil
	}}
	h := NewUserHandler(svc)

	e := newTestEcho()
	c, rec := photoContext(e, t, "attachment", "avatar.png", []byte("png-bytes"))
	c.SetParamNames("id")
	c.SetParamValues("user_1")
	c.Set("principal", domain.Principal{Subject: "user_1", Roles: []string{domain.RoleRegular}})

	if err := h.SetPhoto(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUserHandler_RemovePhoto_NoPhoto(t *testing.T) {
	svc := &stubUserService{removePhotoFn: func(_ context.Context, _ domain.Principal, _ string) (*domain.User, error) {
		return nil, &domain.ValidationError{Reasons: []string{"user has no photo"}}
	}}
	h := NewUserHandler(svc)

	c, rec := jsonContext(newTestEcho(), http.MethodDelete, "/api/v1/users/user_1/photo", "")
	c.SetParamNames("id")
	c.SetParamValues("user_1")
	c.Set("principal", domain.Principal{Subject: "user_1", Roles: []string{domain.RoleRegular}})

	if err := h.RemovePhoto(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
