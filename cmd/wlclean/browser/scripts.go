package browser

import (
	"encoding/json"
	"fmt"
)

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// countScript evaluates to the number of elements matching sel.
func countScript(sel string) string {
	return fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(sel))
}

// clickNthScript clicks the index-th element matching sel and evaluates to
// whether it existed.
func clickNthScript(sel string, index int) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelectorAll(%s)[%d];
  if (!el) return false;
  el.click();
  return true;
})()`, jsString(sel), index)
}

// menuEntryScript looks up the entry-th child of the open menu container and
// evaluates to whether it exists, clicking it when click is set.
func menuEntryScript(menuSel string, entry int, click bool) string {
	return fmt.Sprintf(`(() => {
  const menu = document.querySelector(%s);
  if (!menu || !menu.children[%d]) return false;
  if (%t) menu.children[%d].click();
  return true;
})()`, jsString(menuSel), entry, click, entry)
}

// scrollLastScript scrolls the last element matching sel into view and
// evaluates to whether there was one.
func scrollLastScript(sel string) string {
	return fmt.Sprintf(`(() => {
  const els = document.querySelectorAll(%s);
  if (els.length === 0) return false;
  els[els.length - 1].scrollIntoView({ behavior: "smooth", block: "end" });
  return true;
})()`, jsString(sel))
}
