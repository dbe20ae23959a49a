// Package icons maps product names to display icon identifiers using a
// fixed multilingual keyword table (English and Spanish).
package icons

import "strings"

const DefaultIcon = "generic"

type mapping struct {
	keyword string
	icon    string
}

// Order matters: partial matching walks the table top to bottom, so more
// specific keywords must come before shorter ones they contain.
var mappings = []mapping{
	// Dairy
	{"milk", "milk"},
	{"cheese", "cheese"},
	{"butter", "butter"},
	{"yogurt", "yogurt"},

	// Bakery
	{"bread", "bread"},
	{"baguette", "bread"},
	{"croissant", "bakery"},

	// Fruits
	{"apple", "apple"},
	{"banana", "banana"},
	{"orange", "orange"},
	{"grapes", "grapes"},
	{"strawberry", "strawberry"},

	// Vegetables
	{"tomato", "tomato"},
	{"potato", "potato"},
	{"carrot", "carrot"},
	{"lettuce", "lettuce"},
	{"onion", "onion"},

	// Meat
	{"chicken", "chicken"},
	{"beef", "beef"},
	{"pork", "pork"},
	{"fish", "fish"},

	// Beverages
	{"water", "water"},
	{"juice", "juice"},
	{"soda", "soda"},
	{"coffee", "coffee"},
	{"tea", "tea"},

	// Pantry
	{"rice", "rice"},
	{"pasta", "pasta"},
	{"flour", "flour"},
	{"sugar", "sugar"},
	{"salt", "salt"},
	{"oil", "oil"},

	// Snacks
	{"chips", "chips"},
	{"cookies", "cookie"},
	{"chocolate", "chocolate"},
	{"candy", "candy"},

	// Spanish
	{"leche", "milk"},
	{"queso", "cheese"},
	{"mantequilla", "butter"},
	{"yogur", "yogurt"},
	{"pan", "bread"},
	{"bolleria", "bakery"},
	{"manzana", "apple"},
	{"platano", "banana"},
	{"naranja", "orange"},
	{"uvas", "grapes"},
	{"fresa", "strawberry"},
	{"tomate", "tomato"},
	{"patata", "potato"},
	{"papas", "potato"},
	{"zanahoria", "carrot"},
	{"lechuga", "lettuce"},
	{"cebolla", "onion"},
	{"pollo", "chicken"},
	{"carne", "beef"},
	{"ternera", "beef"},
	{"cerdo", "pork"},
	{"pescado", "fish"},
	{"agua", "water"},
	{"zumo", "juice"},
	{"jugo", "juice"},
	{"refresco", "soda"},
	{"coca", "soda"},
	{"cafe", "coffee"},
	{"te", "tea"},
	{"arroz", "rice"},
	{"harina", "flour"},
	{"azucar", "sugar"},
	{"sal", "salt"},
	{"aceite", "oil"},
	{"galletas", "cookie"},
	{"dulces", "candy"},
	{"caramelos", "candy"},
}

var exact = func() map[string]string {
	m := make(map[string]string, len(mappings))
	for _, entry := range mappings {
		if _, ok := m[entry.keyword]; !ok {
			m[entry.keyword] = entry.icon
		}
	}
	return m
}()

// ForProduct resolves the display icon for a product name. Exact matches win;
// otherwise the first keyword that contains the name or is contained in it is
// used; unknown names fall back to DefaultIcon.
func ForProduct(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return DefaultIcon
	}

	if icon, ok := exact[normalized]; ok {
		return icon
	}

	for _, entry := range mappings {
		if strings.Contains(normalized, entry.keyword) || strings.Contains(entry.keyword, normalized) {
			return entry.icon
		}
	}

	return DefaultIcon
}
