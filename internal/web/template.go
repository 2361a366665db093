package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/fire-panel/internal/status"
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
	"circuits": func(c []int) string {
		if len(c) == 0 {
			return "none"
		}
		parts := make([]string, len(c))
		for i, n := range c {
			parts[i] = fmt.Sprint(n)
		}
		return strings.Join(parts, ", ")
	},
	"names": func(n []string) string {
		if len(n) == 0 {
			return "none"
		}
		return strings.Join(n, ", ")
	},
	"ledClass": func(mode string) string {
		return strings.ToLower(mode)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Fire Panel</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.solid { color: red; font-weight: bold; }
.flash { color: red; font-weight: bold; animation: blink 1s step-start infinite; }
.off { color: #888; }
.on { color: green; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
@keyframes blink { 50% { opacity: 0; } }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Fire Panel{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Indicators</h2>
<table>
<tr><th>Condition</th><td id="condition">{{.Condition}}</td></tr>
<tr><th>Power</th><td id="led-power" class="{{if .Indicators.Power}}on{{else}}off{{end}}">{{if .Indicators.Power}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Alarm</th><td id="led-alarm" class="{{ledClass .Indicators.Alarm}}">{{.Indicators.Alarm}}</td></tr>
<tr><th>Trouble</th><td id="led-trouble" class="{{ledClass .Indicators.Trouble}}">{{.Indicators.Trouble}}</td></tr>
<tr><th>Silenced</th><td id="led-silenced">{{if .Indicators.Silenced}}yes{{else}}no{{end}}</td></tr>
<tr><th>Unacknowledged</th><td id="unacked">{{names .Unacknowledged}}</td></tr>
<tr><th>Reset pending</th><td id="reset-pending">{{if .ResetPending}}yes{{else}}no{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Conditions</h2>
<table>
<tr><th>Pre-alarm</th><td id="pre-alarm">{{circuits .Alarm.PreAlarm}}</td></tr>
<tr><th>General alarm</th><td id="general-alarm">{{circuits .Alarm.GeneralAlarm}}</td></tr>
<tr><th>SLC trouble</th><td id="slc-trouble">{{circuits .Trouble.SLC}}</td></tr>
<tr><th>NAC trouble</th><td id="nac-trouble">{{circuits .Trouble.NAC}}</td></tr>
<tr><th>NAC disabled</th><td>{{circuits .Trouble.NACDisabled}}</td></tr>
<tr><th>General trouble</th><td id="general-trouble">{{names .Trouble.General}}</td></tr>
</table>

<h2>Notification Circuits</h2>
<table>
<tr><th>NAC</th><th>Pattern</th><th>State</th></tr>
{{range .NACs}}<tr><td>{{.Circuit}}</td><td>{{.Pattern}}</td><td>{{if .Disabled}}disabled{{else if .Active}}<span class="solid">active</span>{{else}}idle{{end}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTT.Connected}}connected{{else}}disconnected{{end}}">{{if .MQTT.Connected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Pre-alarms</th><td>{{.Counts.PreAlarms}}</td></tr>
<tr><th>General alarms</th><td>{{.Counts.GeneralAlarms}}</td></tr>
<tr><th>Troubles</th><td>{{.Counts.Troubles}}</td></tr>
<tr><th>Restores</th><td>{{.Counts.Restores}}</td></tr>
<tr><th>Acknowledges</th><td>{{.Counts.Acknowledges}}</td></tr>
<tr><th>Silences</th><td>{{.Counts.Silences}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime}}</td></tr>
<tr><th>Scan cycles</th><td>{{.ScanCycles}}</td></tr>
<tr><th>Analog</th><td>{{.Config.Analog}}</td></tr>
<tr><th>Alarm threshold</th><td>{{printf "%#x" .Config.AlarmAt}}</td></tr>
<tr><th>Pre-alarm mode</th><td>{{if .Config.PreAlarm}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "fire/panel/events";
  var dot = document.getElementById("live-dot");

  function list(a) {
    return a && a.length ? a.join(", ") : "none";
  }

  function setText(id, text, cls) {
    var el = document.getElementById(id);
    if (!el) return;
    el.textContent = text;
    if (cls !== undefined) el.className = cls;
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function refresh() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(j) {
      var s = j.status;
      setText("condition", s.condition);
      setText("led-power", s.indicators.power ? "ON" : "OFF", s.indicators.power ? "on" : "off");
      setText("led-alarm", s.indicators.alarm, s.indicators.alarm.toLowerCase());
      setText("led-trouble", s.indicators.trouble, s.indicators.trouble.toLowerCase());
      setText("led-silenced", s.indicators.silenced ? "yes" : "no");
      setText("unacked", list(s.unacknowledged));
      setText("reset-pending", s.reset_pending ? "yes" : "no");
      setText("pre-alarm", list(s.alarm.pre_alarm));
      setText("general-alarm", list(s.alarm.general_alarm));
      setText("slc-trouble", list(s.trouble.slc));
      setText("nac-trouble", list(s.trouble.nac));
      setText("general-trouble", list(s.trouble.general));
    }).catch(function() {});
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.panel) {
        refresh();
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// StatusInner carries uptime in seconds; the template formats a Duration.
	data := struct {
		status.StatusInner
		Uptime time.Duration
	}{
		StatusInner: status.Build(snap),
		Uptime:      snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
