// Package admin provides the HTML/JSON monitoring endpoints for ssehub.
package admin

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	rice "github.com/GeertJohan/go.rice"
	"github.com/ssehub/ssehub"
)

// Handles serving the static HTML page
func adminStatusHTMLHandler(w http.ResponseWriter, r *http.Request) {
	// kinda ridiculous workaround for serving a single static file, sigh.
	box, err := rice.FindBox("views")
	if err != nil {
		log.Fatalf("error opening rice.Box: %s\n", err)
	}

	file, err := box.Open("admin.html")
	if err != nil {
		log.Fatalf("could not open file: %s\n", err)
	}

	fstat, err := file.Stat()
	if err != nil {
		log.Fatalf("could not stat file: %s\n", err)
	}

	http.ServeContent(w, r, fstat.Name(), fstat.ModTime(), file)
}

// Handles serving the JSON status data, effectively the admin API endpoint
func adminStatusDataHandler(w http.ResponseWriter, r *http.Request, s *ssehub.Server) {
	w.Header().Set("Content-Type", "application/json")
	b, _ := json.MarshalIndent(s.Status(), "", "  ")
	fmt.Fprint(w, string(b))
}

// AdminHandler serves the monitoring surface for s: an HTML overview at
// /admin/ and its JSON backing data at /admin/status.json.
func AdminHandler(s *ssehub.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.AdminEnabled() {
			http.Error(w, "403 admin endpoint disabled", http.StatusForbidden)
			return
		}

		mux := http.NewServeMux()
		mux.HandleFunc("/admin/", adminStatusHTMLHandler)
		mux.HandleFunc("/admin/status.json", func(w http.ResponseWriter, r *http.Request) {
			adminStatusDataHandler(w, r, s)
		})
		mux.ServeHTTP(w, r)
	})
}
