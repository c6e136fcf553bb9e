package http

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/kommerce/tradegate/pkg/httpx"
)

//go:embed html/*.html
var pagesFS embed.FS

// PageHandler serves one of the embedded HTML shells. The pages themselves
// are thin; all interaction happens through the JSON endpoints.
func PageHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := fs.ReadFile(pagesFS, "html/"+name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		httpx.WriteHTML(w, http.StatusOK, string(body))
	}
}
