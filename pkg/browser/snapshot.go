package browser

import (
	"fmt"
	"strings"

	json "github.com/json-iterator/go"
)

// elementIDAttribute marks interactive elements so actions can target them.
const elementIDAttribute = "data-surfer-id"

// snapshotScript tags visible interactive elements with role-prefixed IDs
// and reports them with the viewport geometry as a JSON string.
const snapshotScript = `(() => {
  const attr = "data-surfer-id";
  document.querySelectorAll("[" + attr + "]").forEach(el => el.removeAttribute(attr));
  const selector = "a[href], button, input:not([type=hidden]), textarea, select, [role=button], [role=link], [role=textbox], [role=combobox], [contenteditable=true]";
  const counters = { L: 0, B: 0, I: 0, S: 0 };
  const elements = [];
  const visible = el => {
    const r = el.getBoundingClientRect();
    if (r.width === 0 || r.height === 0) return false;
    const s = window.getComputedStyle(el);
    return s.visibility !== "hidden" && s.display !== "none";
  };
  const kind = el => {
    const tag = el.tagName.toLowerCase();
    const role = (el.getAttribute("role") || "").toLowerCase();
    if (tag === "select" || role === "combobox") return ["S", "select"];
    if (tag === "a" || role === "link") return ["L", "link"];
    if (tag === "input") {
      const type = (el.getAttribute("type") || "text").toLowerCase();
      if (["submit", "button", "reset", "image"].includes(type)) return ["B", "button"];
      if (["checkbox", "radio"].includes(type)) return ["B", type];
      return ["I", "input"];
    }
    if (tag === "textarea" || role === "textbox" || el.isContentEditable) return ["I", "input"];
    return ["B", "button"];
  };
  const label = el => {
    const text = el.getAttribute("aria-label") || el.innerText || el.value || el.getAttribute("placeholder") || el.getAttribute("title") || el.getAttribute("name") || "";
    return text.replace(/\s+/g, " ").trim().slice(0, 120);
  };
  document.querySelectorAll(selector).forEach(el => {
    if (!visible(el) || el.disabled) return;
    const [prefix, role] = kind(el);
    counters[prefix] += 1;
    const id = prefix + counters[prefix];
    el.setAttribute(attr, id);
    elements.push({ id, role, text: label(el) });
  });
  const doc = document.documentElement;
  return JSON.stringify({
    elements,
    viewport: {
      scroll_x: Math.round(window.scrollX),
      scroll_y: Math.round(window.scrollY),
      viewport_width: window.innerWidth,
      viewport_height: window.innerHeight,
      total_width: Math.max(doc.scrollWidth, document.body ? document.body.scrollWidth : 0),
      total_height: Math.max(doc.scrollHeight, document.body ? document.body.scrollHeight : 0)
    }
  });
})()`

type snapshotResult struct {
	Elements []InteractiveElement `json:"elements"`
	Viewport ViewportData         `json:"viewport"`
}

func parseSnapshot(raw string) (*snapshotResult, error) {
	var res snapshotResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("failed to decode page snapshot: %w", err)
	}
	return &res, nil
}

// elementSelector returns the CSS selector for a tagged element ID.
func elementSelector(id string) string {
	return fmt.Sprintf(`[%s="%s"]`, elementIDAttribute, strings.ReplaceAll(id, `"`, `\"`))
}

func scrollScript(dy int) string {
	return fmt.Sprintf(`(() => { window.scrollBy(0, %d); return String(window.scrollY); })()`, dy)
}
