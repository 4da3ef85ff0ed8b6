// Package templates renders the HTML pages served by the web package.
//
// Pages are templ components. Edit the .templ files and run templ generate
// to refresh the matching _templ.go files.
package templates

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"
)

// FileInfo is the loaded-table summary shown on the index page.
type FileInfo struct {
	Filename    string
	Rows        int
	Columns     int
	ColumnNames []string
}

// IndexData is the index page model. File is nil when no table is loaded.
type IndexData struct {
	File          *FileInfo
	MaxUploadSize int64
	PerPage       int
}

func styles() templ.Component {
	return templ.Raw("<style>" + pageCSS + "</style>")
}

func pageScript() templ.Component {
	return templ.Raw("<script>" + pageJS + "</script>")
}

func fileShape(f *FileInfo) string {
	return strconv.Itoa(f.Rows) + " rows, " + strconv.Itoa(f.Columns) + " columns"
}

func humanBytes(n int64) string {
	switch {
	case n <= 0:
		return "no limit"
	case n >= 1<<20:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

const pageCSS = `body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1d2330}
main{max-width:1100px;margin:0 auto;padding:1.5rem}
section{background:#fff;border:1px solid #dde1e7;border-radius:6px;padding:1rem;margin-bottom:1rem}
h1{font-size:1.5rem}h2{font-size:1.1rem;margin-top:0}
table{border-collapse:collapse;width:100%;font-size:.9rem}
th,td{border:1px solid #dde1e7;padding:.3rem .5rem;text-align:left;vertical-align:top}
th{background:#eef1f5}
.status{margin-top:.5rem;min-height:1.2rem}.error{color:#b3261e}
#pager button{margin-right:.3rem}`

const pageJS = `
const PER_PAGE = Number(document.querySelector("main").dataset.perPage) || 50;
let lastResults = [];
let mode = {query: "", column: "all"};

function setStatus(id, msg, isError) {
  const el = document.getElementById(id);
  el.textContent = msg;
  el.className = "status" + (isError ? " error" : "");
}

function renderTable(columns, rows) {
  const box = document.getElementById("results");
  box.textContent = "";
  if (!rows.length) { box.textContent = "No rows."; return; }
  const table = document.createElement("table");
  const head = table.createTHead().insertRow();
  columns.forEach(c => { const th = document.createElement("th"); th.textContent = c; head.appendChild(th); });
  const body = table.createTBody();
  rows.forEach(r => {
    const tr = body.insertRow();
    columns.forEach(c => { tr.insertCell().textContent = r[c] ?? ""; });
  });
  box.appendChild(table);
}

function renderPager(page, totalPages) {
  const pager = document.getElementById("pager");
  pager.textContent = "";
  if (totalPages <= 1) return;
  const add = (label, target, disabled) => {
    const b = document.createElement("button");
    b.textContent = label;
    b.disabled = disabled;
    b.onclick = () => loadPage(target);
    pager.appendChild(b);
  };
  add("Previous", page - 1, page <= 1);
  pager.appendChild(document.createTextNode(" Page " + page + " of " + totalPages + " "));
  add("Next", page + 1, page >= totalPages);
}

function columnOrder() {
  return [...document.getElementById("column-select").options].slice(1).map(o => o.value);
}

async function loadPage(page) {
  const params = new URLSearchParams({page: page, per_page: PER_PAGE});
  if (mode.query) { params.set("query", mode.query); params.set("column", mode.column); }
  const resp = await fetch("/get_data?" + params);
  const body = await resp.json();
  if (!resp.ok) { setStatus("search-status", body.error, true); return; }
  renderTable(body.columns, body.data);
  renderPager(body.page, body.total_pages);
}

document.getElementById("upload-form").addEventListener("submit", async e => {
  e.preventDefault();
  setStatus("upload-status", "Uploading...", false);
  const resp = await fetch("/upload", {method: "POST", body: new FormData(e.target)});
  const body = await resp.json();
  if (!resp.ok) { setStatus("upload-status", body.error, true); return; }
  const info = body.data;
  setStatus("upload-status", body.message, false);
  document.getElementById("file-info").hidden = false;
  document.getElementById("file-name").textContent = info.filename;
  document.getElementById("file-shape").textContent = info.rows + " rows, " + info.columns + " columns";
  const select = document.getElementById("column-select");
  select.length = 1;
  info.column_names.forEach(c => select.add(new Option(c, c)));
  mode = {query: "", column: "all"};
  loadPage(1);
});

document.getElementById("search-form").addEventListener("submit", async e => {
  e.preventDefault();
  const form = new FormData(e.target);
  const req = {query: form.get("query"), column: form.get("column")};
  const resp = await fetch("/search", {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(req)});
  const body = await resp.json();
  if (!resp.ok) { setStatus("search-status", body.error, true); return; }
  // Row objects arrive with sorted keys; exports follow the table's column order.
  const order = columnOrder();
  lastResults = body.results.map(r => Object.fromEntries(order.map(c => [c, r[c] ?? ""])));
  mode = {query: body.query, column: body.column};
  setStatus("search-status", body.total_results + " matching rows", false);
  document.getElementById("export-button").disabled = !lastResults.length;
  loadPage(1);
});

document.getElementById("browse-button").addEventListener("click", () => {
  mode = {query: "", column: "all"};
  setStatus("search-status", "", false);
  loadPage(1);
});

document.getElementById("export-button").addEventListener("click", async () => {
  const resp = await fetch("/export", {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify({results: lastResults})});
  if (!resp.ok) { const body = await resp.json(); setStatus("search-status", body.error, true); return; }
  const disposition = resp.headers.get("Content-Disposition") || "";
  const match = /filename="?([^";]+)"?/.exec(disposition);
  const link = document.createElement("a");
  link.href = URL.createObjectURL(await resp.blob());
  link.download = match ? match[1] : "search_results.xlsx";
  link.click();
  URL.revokeObjectURL(link.href);
});

if (!document.getElementById("file-info").hidden) loadPage(1);
`
