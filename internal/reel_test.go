package reel

import (
	"context"
	"errors"
	"testing"
)

func TestParseFilmSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    FilmSort
		wantErr bool
	}{
		{name: "empty", in: "", want: FilmSort{}},
		{name: "ascending", in: "imdb_rating", want: FilmSort{Field: SortField}},
		{name: "descending", in: "-imdb_rating", want: FilmSort{Field: SortField, Desc: true}},
		{name: "unknown field", in: "title", wantErr: true},
		{name: "bare dash", in: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFilmSort(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrBadRequest) {
					t.Fatalf("err = %v, want ErrBadRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseFilmSort(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestPage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page Page
		ok   bool
	}{
		{name: "default", page: DefaultPage(), ok: true},
		{name: "zero number", page: Page{Number: 0, Size: 10}},
		{name: "zero size", page: Page{Number: 1, Size: 0}},
		{name: "too large", page: Page{Number: 1, Size: MaxPageSize + 1}},
		{name: "max size", page: Page{Number: 3, Size: MaxPageSize}, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.page.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrBadRequest) {
				t.Errorf("Validate() = %v, want ErrBadRequest", err)
			}
		})
	}
}

func TestPage_Offset(t *testing.T) {
	t.Parallel()
	if got := (Page{Number: 3, Size: 20}).Offset(); got != 40 {
		t.Errorf("Offset() = %d, want 40", got)
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("empty context request id = %q", got)
	}
	ctx = ContextWithRequestID(ctx, "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("request id = %q, want req-1", got)
	}
}
