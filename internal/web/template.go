package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sweeney/parking-logger/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"since": func(t, now time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return humanize.RelTime(t, now, "ago", "from now")
	},
	"slotClass": func(s string) string {
		switch strings.ToUpper(s) {
		case "EMPTY":
			return "empty"
		case "":
			return "unknown"
		default:
			return "taken"
		}
	},
	"inc": func(i int) int { return i + 1 },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Parking Logger</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.empty { color: green; font-weight: bold; }
.taken { color: #c00; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Parking Logger</h1>

<h2>Slots</h2>
<table>
<tr><th>Available</th><td id="available">{{if .Ready}}{{.Available}}{{else}}<span class="unknown">UNKNOWN</span>{{end}}</td></tr>
{{range $i, $s := .Slots}}<tr><th>Slot {{inc $i}}</th><td class="{{slotClass $s}}">{{$s}}</td></tr>
{{end}}<tr><th>Last change</th><td>{{if .LastDescription}}{{.LastDescription}} ({{since .LastChange .Now}}){{else}}none yet{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Serial port</th><td>{{.Config.SerialPort}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Lines</h2>
<table>
<tr><th>Received</th><td>{{.Counts.Lines}}</td></tr>
<tr><th>Malformed</th><td>{{.Counts.Malformed}}</td></tr>
<tr><th>Checksum failures</th><td>{{.Counts.ChecksumFailures}}</td></tr>
<tr><th>Unchanged</th><td>{{.Counts.Unchanged}}</td></tr>
<tr><th>Debounced</th><td>{{.Counts.Debounced}}</td></tr>
<tr><th>Changes reported</th><td>{{.Counts.Reported}}</td></tr>
<tr><th>Sink failures</th><td>{{.Counts.SinkFailures}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Min state duration</th><td>{{.Config.MinStateMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Data dir</th><td>{{.Config.DataDir}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	indexTmpl.Execute(w, snap)
}
