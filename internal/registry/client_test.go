package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestListStaffPagesWithRetry(t *testing.T) {
	attempt := 0

	cfg, _ := config.Load()
	cfg.SchoolAPIToken = "test"
	cfg.SchoolAPIBaseURL = "https://example.test/api/v1"
	cfg.SchoolRateLimit = 1000
	cfg.SchoolPageSize = 2

	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/v1/staff/teachers" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test" {
				t.Fatalf("unexpected auth header %q", got)
			}
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusInternalServerError,
					Body:       io.NopCloser(strings.NewReader(`{"error":"boom"}`)),
					Header:     make(http.Header),
				}, nil
			}

			var page map[string]any
			if r.URL.Query().Get("page") == "1" {
				page = map[string]any{
					"teachers": []map[string]any{
						{"id": 1, "fullName": "Иванова Мария Петровна", "lastName": "Иванова", "firstName": "Мария", "middleName": "Петровна", "active": true},
						{"id": 2, "fullName": "Кузнецов Олег Сергеевич", "lastName": "Кузнецов", "firstName": "Олег", "middleName": "Сергеевич", "active": true},
					},
					"page": 1, "totalPages": 2,
				}
			} else {
				page = map[string]any{
					"teachers": []map[string]any{
						{"id": 3, "fullName": "Смирнова Анна Ивановна", "lastName": "Смирнова", "firstName": "Анна", "middleName": "Ивановна", "active": false},
					},
					"page": 2, "totalPages": 2,
				}
			}
			blob, _ := json.Marshal(map[string]any{"success": true, "data": page})
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(string(blob))),
				Header:     make(http.Header),
			}, nil
		}),
	}

	teachers, err := client.ListStaff(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(teachers) != 3 {
		t.Fatalf("len=%d", len(teachers))
	}
	if teachers[0].ID != 1 || teachers[0].FullName != "Иванова Мария Петровна" {
		t.Fatalf("first: %+v", teachers[0])
	}
	if teachers[2].Active {
		t.Fatalf("inactive flag lost: %+v", teachers[2])
	}
}

func TestListStaffRequiresToken(t *testing.T) {
	cfg, _ := config.Load()
	cfg.SchoolAPIToken = ""

	if _, err := NewClient(cfg).ListStaff(context.Background()); err == nil {
		t.Fatal("expected error without token")
	}
}
