package api

import (
	"bytes"
	"html/template"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Study Buddy sign in</title>
<script src="https://accounts.google.com/gsi/client" async defer></script>
<style>
body { font-family: system-ui, sans-serif; display: flex; flex-direction: column; align-items: center; margin-top: 15vh; }
#status { margin-top: 1.5rem; color: #555; }
</style>
</head>
<body>
<h1>Study Buddy</h1>
<p>Sign in with Google to connect the command line.</p>
<div id="g_id_onload" data-client_id="{{.ClientID}}" data-callback="onCredential" data-auto_prompt="false"></div>
<div class="g_id_signin" data-type="standard" data-size="large" data-theme="outline" data-text="sign_in_with" data-shape="rectangular"></div>
<p id="status"></p>
<script>
function onCredential(response) {
  var status = document.getElementById("status");
  status.textContent = "Signing in...";
  fetch("/login/callback", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({credential: response.credential})
  }).then(function (res) {
    return res.json().then(function (body) { return {ok: res.ok, body: body}; });
  }).then(function (r) {
    status.textContent = r.ok
      ? "Signed in as " + r.body.full_name + ". You can close this tab."
      : "Sign in failed: " + r.body.error;
  }).catch(function (err) {
    status.textContent = "Sign in failed: " + err;
  });
}
</script>
</body>
</html>
`))

func renderLoginPage(clientID string) ([]byte, error) {
	var buf bytes.Buffer
	if err := loginPage.Execute(&buf, struct{ ClientID string }{clientID}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
