package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLang(context.Background(), lang)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "AppTitle"); got != "Interview Coach" {
		t.Errorf("T(AppTitle) = %q, want 'Interview Coach'", got)
	}
	if got := T(ctx, "AnswerTooShort"); got != "Answer too short." {
		t.Errorf("T(AnswerTooShort) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	if got := T(ctx, "AppTitle"); got != "Тренер собеседований" {
		t.Errorf("T(AppTitle) = %q, want 'Тренер собеседований'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "QuestionsAnswered", 1); got != "1 question answered." {
		t.Errorf("Tp(QuestionsAnswered, 1) = %q", got)
	}
	if got := Tp(ctx, "QuestionsAnswered", 3); got != "3 questions answered." {
		t.Errorf("Tp(QuestionsAnswered, 3) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "FeedbackWeak", map[string]any{"Domain": "JAVA"})
	if got != "Weak answer. Missing key JAVA concepts." {
		t.Errorf("Td(FeedbackWeak) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestNoLocalizerInContextFallsBackToEnglish(t *testing.T) {
	initLang(t, "en")

	if got := T(context.Background(), "AppTitle"); got != "Interview Coach" {
		t.Errorf("T without localizer = %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	initLang(t, "en")

	var got string
	h := Middleware("ru")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "AppTitle")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got != "Тренер собеседований" {
		t.Errorf("middleware did not install the ru localizer, got %q", got)
	}
}

func TestMiddlewareAcceptLanguage(t *testing.T) {
	initLang(t, "en")

	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{"header wins", "ru-RU,ru;q=0.9", "Тренер собеседований"},
		{"unknown header falls back", "de-DE", "Interview Coach"},
		{"no header", "", "Interview Coach"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = T(r.Context(), "AppTitle")
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
