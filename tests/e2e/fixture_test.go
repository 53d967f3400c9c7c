// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package e2e

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"
)

// loaderApp is a single-page stand-in for the mod loader renderer. It routes
// on location.pathname and reads the online listing from window.electronAPI.
const loaderApp = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Kamisama Loader</title>
<style>
  body { font-family: sans-serif; margin: 0; display: flex; }
  nav { width: 180px; background: #222; min-height: 100vh; padding: 12px; }
  nav button { display: block; width: 100%; margin-bottom: 8px; }
  main { padding: 24px; flex: 1; }
  .hidden { display: none; }
  .card { border: 1px solid #ccc; padding: 8px; margin: 4px 0; }
</style>
</head>
<body>
<nav>
  <button onclick="go('/')">Dashboard</button>
  <button onclick="go('/mods')">Mods</button>
  <button onclick="go('/settings')">Settings</button>
  <button class="hidden" onclick="go('/settings')">Installed Mods Settings</button>
</nav>
<main>
  <section id="home">
    <h1>Welcome to Kamisama Loader</h1>
    <div class="card" role="button" onclick="go('/mods')">My Mods</div>
  </section>
  <section id="mods">
    <h1>Installed Mods</h1>
    <button id="browse" onclick="browse()">Browse Online</button>
    <div id="listing"></div>
  </section>
  <section id="settings">
    <h1>Settings</h1>
    <label>Game Directory <input value="/games/sparking-zero"></label>
  </section>
</main>
<script>
  function render() {
    const path = location.pathname.replace(/\/+$/, '') || '/';
    const view = path === '/' ? 'home' : path.slice(1);
    for (const s of document.querySelectorAll('main section')) {
      s.classList.toggle('hidden', s.id !== view);
    }
  }
  function go(path) {
    history.pushState({}, '', path);
    render();
  }
  async function browse() {
    const listing = document.getElementById('listing');
    if (!window.electronAPI) {
      listing.textContent = 'Bridge unavailable';
      return;
    }
    const mods = await window.electronAPI.searchBySection({ page: 1 });
    listing.innerHTML = '';
    for (const m of mods) {
      const d = document.createElement('div');
      d.className = 'card';
      d.textContent = m.name + ' by ' + m.author;
      listing.appendChild(d);
    }
  }
  window.addEventListener('popstate', render);
  render();
</script>
</body>
</html>
`

// tieBreakPage records which element ClickText picked in document.title.
const tieBreakPage = `<!DOCTYPE html>
<html>
<body>
  <p>Open</p>
  <button style="display:none" onclick="document.title='hidden'">Open</button>
  <button onclick="document.title='substring'">Open Folder</button>
  <a href="#" onclick="document.title='exact'; return false;">  Open  </a>
  <button onclick="document.title='second-exact'">Open</button>
  <section><div id="dir">Game Directory</div></section>
  <script>
    document.getElementById('dir').addEventListener('click', () => { document.title = 'innermost'; });
  </script>
</body>
</html>
`

// startLoaderApp serves loaderApp for every path and returns the URL the
// browser should use to reach it.
func startLoaderApp(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/tiebreak", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, tieBreakPage)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, loaderApp)
	})

	// Listen on all interfaces so a browser in another container can connect.
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(l.Addr().String())
	server := &http.Server{Handler: mux}
	go server.Serve(l)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})
	return fmt.Sprintf("http://%s:%s", *appHost, port)
}
