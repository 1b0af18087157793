package portal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const signInPage = `<html><body><form action="/users/sign_in" method="post">
<input type="hidden" name="authenticity_token" value="tok-123" />
</form></body></html>`

// registerLoginRoutes wires a working sign-in flow onto mux: token page, the
// credentials POST and the home probe. Only email/password pairs matching the
// given values are accepted.
func registerLoginRoutes(mux *http.ServeMux, email, password string) {
	mux.HandleFunc("/users/sign_in", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "csrf_probe", Value: "page-cookie-value"})
			_, _ = w.Write([]byte(signInPage))
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("authenticity_token") != "tok-123" ||
			r.PostForm.Get("user[email]") != email ||
			r.PostForm.Get("user[password]") != password {
			_, _ = w.Write([]byte("Invalid email or password"))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "_session_id", Value: "fresh-session-0123456789"})
		w.Header().Set("Location", "/home")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoginSavesSessionAndCredentials(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	registerLoginRoutes(mux, "alice@example.com", "hunter22")
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemStore()
	c := testClient(t, srv.URL, store, nil)

	msg, err := c.Login(context.Background(), "u1", "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if msg == "" {
		t.Fatal("expected a success message")
	}

	jar := store.jars["u1"]
	if len(jar) == 0 {
		t.Fatal("login did not persist a jar")
	}
	found := false
	for _, ck := range jar {
		if ck.Name == "_session_id" && ck.Value == "fresh-session-0123456789" {
			found = true
		}
	}
	if !found {
		t.Fatalf("session cookie missing from saved jar: %+v", jar)
	}
	if store.emails["u1"] != "alice@example.com" || store.passwords["u1"] != "hunter22" {
		t.Fatalf("credentials not saved: %q / %q", store.emails["u1"], store.passwords["u1"])
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	registerLoginRoutes(mux, "alice@example.com", "hunter22")
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemStore()
	c := testClient(t, srv.URL, store, nil)

	_, err := c.Login(context.Background(), "u1", "alice@example.com", "wrong")
	if !IsKind(err, KindInvalidCredentials) {
		t.Fatalf("expected invalid-credentials error, got %v", err)
	}
	if len(store.jars["u1"]) != 0 {
		t.Fatal("rejected login must not persist a jar")
	}
}

func TestLoginMissingAntiForgeryToken(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/users/sign_in", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>no token here</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(t, srv.URL, newMemStore(), nil)
	_, err := c.Login(context.Background(), "u1", "a@b.c", "pw")
	if !IsKind(err, KindContractViolation) {
		t.Fatalf("expected contract-violation error, got %v", err)
	}
}

func TestLoginSuspiciouslyShortCookies(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/users/sign_in", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(signInPage))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "_session_id", Value: "short"})
		w.Header().Set("Location", "/home")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(t, srv.URL, newMemStore(), nil)
	_, err := c.Login(context.Background(), "u1", "a@b.c", "pw")
	if !IsKind(err, KindContractViolation) {
		t.Fatalf("expected contract-violation error, got %v", err)
	}
}

func TestLoginWithSavedNoCredentials(t *testing.T) {
	t.Parallel()

	c := testClient(t, "http://portal.invalid", newMemStore(), nil)
	_, err := c.LoginWithSaved(context.Background(), "u1")
	if !errors.Is(err, ErrNoSavedCredentials) {
		t.Fatalf("expected ErrNoSavedCredentials, got %v", err)
	}
	if !IsKind(err, KindNoSavedCredentials) {
		t.Fatalf("expected no-saved-credentials kind, got %v", err)
	}
}
