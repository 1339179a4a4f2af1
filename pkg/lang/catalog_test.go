package lang

import "testing"

func TestForLanguage(t *testing.T) {
	if ForLanguage("EN").InvalidOrderID != English().InvalidOrderID {
		t.Error("EN should select the English catalog")
	}
	if ForLanguage("en").ConnectionSuccess != English().ConnectionSuccess {
		t.Error("lowercase en should select the English catalog")
	}
	if ForLanguage("FR").InvalidOrderID != French().InvalidOrderID {
		t.Error("FR should select the French catalog")
	}
	if ForLanguage("de").InvalidOrderID != French().InvalidOrderID {
		t.Error("unknown selectors fall back to French")
	}
}
