package dom

import (
	"strconv"
	"strings"
	"unicode"
)

// CSSStyleDeclaration represents an element's inline style. It is a view
// over the style attribute: every write is reflected back immediately.
type CSSStyleDeclaration struct {
	element *Element

	declarations  map[string]*styleProperty
	propertyOrder []string
}

// styleProperty holds a single CSS property's value and priority.
type styleProperty struct {
	value    string
	priority string // "important" or ""
}

// Style returns the element's inline style declaration.
func (e *Element) Style() *CSSStyleDeclaration {
	sd := &CSSStyleDeclaration{
		element:      e,
		declarations: make(map[string]*styleProperty),
	}
	if v, ok := e.Attr("style"); ok {
		sd.parseFromAttribute(v)
	}
	return sd
}

// CSSText returns the textual representation of the declaration block.
func (sd *CSSStyleDeclaration) CSSText() string {
	var parts []string
	for _, prop := range sd.propertyOrder {
		sp := sd.declarations[prop]
		part := prop + ": " + sp.value
		if sp.priority == "important" {
			part += " !important"
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

// GetPropertyValue returns the value of a CSS property.
func (sd *CSSStyleDeclaration) GetPropertyValue(property string) string {
	if sp, ok := sd.declarations[normalizeCSSPropertyName(property)]; ok {
		return sp.value
	}
	return ""
}

// PixelValue reads a length property the way parseInt would: the leading
// integer of the value, or 0 when there is none.
func (sd *CSSStyleDeclaration) PixelValue(property string) int {
	v := strings.TrimSpace(sd.GetPropertyValue(property))
	end := 0
	for end < len(v) && (unicode.IsDigit(rune(v[end])) || (end == 0 && (v[end] == '-' || v[end] == '+'))) {
		end++
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil {
		return 0
	}
	return n
}

// SetProperty sets a CSS property. An empty value removes it.
func (sd *CSSStyleDeclaration) SetProperty(property, value string) {
	property = normalizeCSSPropertyName(property)
	if property == "" {
		return
	}
	if value == "" {
		sd.RemoveProperty(property)
		return
	}
	if _, exists := sd.declarations[property]; !exists {
		sd.propertyOrder = append(sd.propertyOrder, property)
	}
	sd.declarations[property] = &styleProperty{value: value}
	sd.syncToAttribute()
}

// RemoveProperty removes a CSS property and returns its old value.
func (sd *CSSStyleDeclaration) RemoveProperty(property string) string {
	property = normalizeCSSPropertyName(property)
	sp, ok := sd.declarations[property]
	if !ok {
		return ""
	}
	delete(sd.declarations, property)
	for i, p := range sd.propertyOrder {
		if p == property {
			sd.propertyOrder = append(sd.propertyOrder[:i], sd.propertyOrder[i+1:]...)
			break
		}
	}
	sd.syncToAttribute()
	return sp.value
}

// parseFromAttribute parses a style attribute string into declarations.
func (sd *CSSStyleDeclaration) parseFromAttribute(styleAttr string) {
	for _, part := range strings.Split(styleAttr, ";") {
		part = strings.TrimSpace(part)
		colonIdx := strings.Index(part, ":")
		if colonIdx == -1 {
			continue
		}

		property := normalizeCSSPropertyName(strings.TrimSpace(part[:colonIdx]))
		value := strings.TrimSpace(part[colonIdx+1:])
		if property == "" || value == "" {
			continue
		}

		priority := ""
		if idx := strings.LastIndex(value, "!"); idx >= 0 && strings.EqualFold(strings.TrimSpace(value[idx+1:]), "important") {
			priority = "important"
			value = strings.TrimSpace(value[:idx])
		}

		if _, exists := sd.declarations[property]; !exists {
			sd.propertyOrder = append(sd.propertyOrder, property)
		}
		sd.declarations[property] = &styleProperty{value: value, priority: priority}
	}
}

// syncToAttribute writes the declarations back to the style attribute.
func (sd *CSSStyleDeclaration) syncToAttribute() {
	cssText := sd.CSSText()
	if cssText == "" {
		sd.element.RemoveAttribute("style")
		return
	}
	sd.element.SetAttribute("style", cssText)
}

// normalizeCSSPropertyName converts camelCase to kebab-case and lowercases.
// "minHeight" -> "min-height".
func normalizeCSSPropertyName(name string) string {
	if strings.Contains(name, "-") {
		return strings.ToLower(name)
	}
	var sb strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
