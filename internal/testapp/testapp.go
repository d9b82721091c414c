// Package testapp serves a minimal single-page application fixture for
// exercising pageready against a real browser.
//
// Behavior:
//   - The document has a title (unless Title is empty) and a #root element
//   - With Mount, a script renders a few divs and a button into #root
//   - With Canvas, the script adds a <canvas> after CanvasDelay
//   - Each ConsoleErrors entry is logged with console.error on load
//   - With Throw, the script raises an uncaught error after mounting
package testapp

import (
	"html/template"
	"net/http"
	"time"
)

// App is the fixture configuration.
type App struct {
	Title         string
	Mount         bool
	Canvas        bool
	CanvasDelay   time.Duration
	ConsoleErrors []string
	Throw         string
}

// Ready is a mounted app with an immediate canvas.
func Ready() App {
	return App{Title: "FossFLOW", Mount: true, Canvas: true}
}

// Routes serves the common fixture variants:
//
//	/            Ready
//	/slow-canvas canvas after two seconds
//	/no-canvas   mounted, never draws
//	/errors      mounted with console errors and an uncaught exception
//	/blank       no title, empty root, no scripts
func Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/{$}", Ready())

	slow := Ready()
	slow.CanvasDelay = 2 * time.Second
	mux.Handle("/slow-canvas", slow)

	noCanvas := Ready()
	noCanvas.Canvas = false
	mux.Handle("/no-canvas", noCanvas)

	broken := noCanvas
	broken.ConsoleErrors = []string{"Failed to load resource: paper.js", "WebGL: context lost"}
	broken.Throw = "paper is not defined"
	mux.Handle("/errors", broken)

	mux.Handle("/blank", App{})
	return mux
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<div id="root"></div>
{{- if .Scripted}}
<script>
{{- range .ConsoleErrors}}
console.error({{.}});
{{- end}}
{{- if .Mount}}
(function () {
  var root = document.getElementById("root");
  for (var i = 0; i < 3; i++) {
    var div = document.createElement("div");
    div.className = "panel";
    root.appendChild(div);
  }
  var button = document.createElement("button");
  button.textContent = "Add node";
  root.appendChild(button);
  console.log("mounted");
})();
{{- end}}
{{- if .Canvas}}
setTimeout(function () {
  var canvas = document.createElement("canvas");
  canvas.width = 640;
  canvas.height = 480;
  document.getElementById("root").appendChild(canvas);
}, {{.DelayMillis}});
{{- end}}
{{- if .Throw}}
setTimeout(function () { throw new Error({{.Throw}}); }, 0);
{{- end}}
</script>
{{- end}}
</body>
</html>
`))

type view struct {
	App
	Scripted    bool
	DelayMillis int64
}

// ServeHTTP renders the fixture page.
func (a App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v := view{
		App:         a,
		Scripted:    a.Mount || a.Canvas || a.Throw != "" || len(a.ConsoleErrors) > 0,
		DelayMillis: a.CanvasDelay.Milliseconds(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
