package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/vent-controller/internal/control"
	"github.com/sweeney/vent-controller/internal/status"
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
	"levelOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"tenths": control.FormatTenths,
	"inc": func(i int) int { return i + 1 },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Vent Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Vent Controller</h1>

<h2>Fan</h2>
<table>
<tr><th>Speed</th><td id="speed">{{.Device.Speed}}%</td></tr>
<tr><th>Level</th><td id="level" class="{{if eq (levelOrUnknown .Device.Level) "OFF"}}off{{else if eq (levelOrUnknown .Device.Level) "UNKNOWN"}}unknown{{else}}on{{end}}">{{levelOrUnknown .Device.Level}}</td></tr>
{{range $i, $r := .Device.Relays}}<tr><th>Relay {{inc $i}}</th><td class="{{if $r}}on{{else}}off{{end}}">{{if $r}}ON{{else}}OFF{{end}}</td></tr>
{{end}}<tr><th>Ready</th><td>{{if .Booted}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Environment</h2>
<table>
<tr><th>Temperature</th><td id="temperature">{{tenths .Device.Temperature}} °C</td></tr>
<tr><th>Humidity</th><td id="humidity">{{tenths .Device.Humidity}} %</td></tr>
<tr><th>Reports</th><td>{{.Device.Reports.Temperature}} temperature, {{.Device.Reports.Humidity}} humidity</td></tr>
</table>

<h2>Parameters</h2>
<table>
{{range .Device.Params}}<tr><th>{{.Number}} {{.Name}}</th><td>{{.Value}}</td></tr>
{{end}}<tr><th>Stored block</th><td class="{{if eq .Device.ParamState "VALID"}}connected{{else}}unknown{{end}}">{{.Device.ParamState}}{{if .Device.Recovered}} (defaults restored at boot){{end}}{{if .Device.Pending}} (write pending){{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.GPIOBackend}}</td></tr>
<tr><th>NVM</th><td>{{.Config.NVMPath}}</td></tr>
<tr><th>Sensor</th><td>{{.Config.SensorDir}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has an Uptime method but the template needs a value.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
