// Package page renders the terminal Success and Error pages of the linking flow.
package page

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const (
	successIcon template.HTML = `<svg fill="#66cc33" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 26 26" width="96px" height="96px"><path d="M 13 1 C 6.382813 1 1 6.382813 1 13 C 1 19.617188 6.382813 25 13 25 C 19.617188 25 25 19.617188 25 13 C 25 6.382813 19.617188 1 13 1 Z M 13 3 C 18.535156 3 23 7.464844 23 13 C 23 18.535156 18.535156 23 13 23 C 7.464844 23 3 18.535156 3 13 C 3 7.464844 7.464844 3 13 3 Z M 17.1875 7.0625 C 17.039063 7.085938 16.914063 7.164063 16.8125 7.3125 L 11.90625 14.59375 L 9.59375 12.3125 C 9.394531 12.011719 9.011719 11.988281 8.8125 12.1875 L 7.90625 13.09375 C 7.707031 13.394531 7.707031 13.800781 7.90625 14 L 11.40625 17.5 C 11.605469 17.601563 11.886719 17.8125 12.1875 17.8125 C 12.386719 17.8125 12.707031 17.707031 12.90625 17.40625 L 18.90625 8.59375 C 19.105469 8.292969 18.992188 8.011719 18.59375 7.8125 L 17.59375 7.09375 C 17.492188 7.042969 17.335938 7.039063 17.1875 7.0625 Z"/></svg>`
	errorIcon   template.HTML = `<svg fill="#cc3366" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 32 32" width="96px" height="96px"><path d="M 16 3 C 8.832031 3 3 8.832031 3 16 C 3 23.167969 8.832031 29 16 29 C 23.167969 29 29 23.167969 29 16 C 29 8.832031 23.167969 3 16 3 Z M 16 5 C 22.085938 5 27 9.914063 27 16 C 27 22.085938 22.085938 27 16 27 C 9.914063 27 5 22.085938 5 16 C 5 9.914063 9.914063 5 16 5 Z M 12.21875 10.78125 L 10.78125 12.21875 L 14.5625 16 L 10.78125 19.78125 L 12.21875 21.21875 L 16 17.4375 L 19.78125 21.21875 L 21.21875 19.78125 L 17.4375 16 L 21.21875 12.21875 L 19.78125 10.78125 L 16 14.5625 Z"/></svg>`
)

// Paths the page rewrites the browser location to, so a reload never
// replays the callback.
const (
	SuccessPath = "/success"
	ErrorPath   = "/error"
)

// DefaultSuccessTitle is shown when the flow completes.
const DefaultSuccessTitle = "Your Open Collective account is now linked."

type view struct {
	Outcome string
	Title   string
	Icon    template.HTML
	Path    string
}

// Success writes the Success page.
func Success(w http.ResponseWriter, title string) {
	render(w, view{Outcome: "success", Title: title, Icon: successIcon, Path: SuccessPath})
}

// Error writes the Error page with message. The status is always 200 so the
// browser shows the page instead of its own error screen.
func Error(w http.ResponseWriter, message string) {
	render(w, view{Outcome: "error", Title: message, Icon: errorIcon, Path: ErrorPath})
}

func render(w http.ResponseWriter, v view) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "terminal.html", v); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
