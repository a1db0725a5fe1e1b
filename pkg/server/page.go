package server

// capturePage is the browser side of a capture session. It reports raw
// keydown/keyup transitions with their stable code and display key; repeat
// suppression and timing are handled by the recorder, not here.
const capturePage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>keytrace — {{.SessionName}}</title>
<style>
  body { background: #101010; color: #d0d0d0; font-family: monospace; margin: 2em; }
  #state { color: #808080; }
  .ok { color: #50c050; }
  .err { color: #c05050; }
  kbd { background: #202020; border: 1px solid #404040; border-radius: 3px; padding: 0 0.3em; }
</style>
</head>
<body>
<h3>keytrace session: {{.SessionName}}</h3>
<p>Keep this page focused and type. Every key press and release is streamed to
the session. Last key: <kbd id="last">-</kbd></p>
<p id="state">connecting...</p>
<script>
(function () {
  var state = document.getElementById("state");
  var last = document.getElementById("last");

  var key = "keytrace-secret-{{.SessionName}}";
  var secret = localStorage.getItem(key);
  if (!secret) {
    secret = Math.random().toString(36).slice(2) + Date.now().toString(36);
    localStorage.setItem(key, secret);
  }

  var scheme = location.protocol === "https:" ? "wss" : "ws";
  var ws = new WebSocket(scheme + "://" + location.host + "/s/{{.SessionName}}/ws");

  ws.onopen = function () {
    ws.send(JSON.stringify({
      Type: "ClientInfo",
      Data: { Name: "{{.SessionName}}", Role: "Source", Secret: secret }
    }));
    state.textContent = "capturing";
    state.className = "ok";
  };

  ws.onclose = function () {
    state.textContent = "disconnected";
    state.className = "err";
  };

  ws.onmessage = function (e) {
    var msg = JSON.parse(e.data);
    if (msg.Type === "Unauthorized") {
      state.textContent = "unauthorized: session name is taken by another page";
      state.className = "err";
      ws.close();
    }
  };

  function send(type, e) {
    if (ws.readyState !== WebSocket.OPEN) return;
    ws.send(JSON.stringify({
      Type: type,
      Data: { keyId: e.code, label: e.key, clientTime: Date.now() }
    }));
  }

  window.addEventListener("keydown", function (e) {
    e.preventDefault();
    last.textContent = e.key === " " ? "Space" : e.key;
    send("KeyDown", e);
  });
  window.addEventListener("keyup", function (e) {
    e.preventDefault();
    send("KeyUp", e);
  });
})();
</script>
</body>
</html>
`
