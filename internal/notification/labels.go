package notification

// serviceLabels maps catalog service codes to the names clients see.
var serviceLabels = map[string]string{
	"launch_pack_12m":  "Pack “Despega 12M”",
	"web_design":       "Diseño Web",
	"web_redesign":     "Rediseño Web",
	"ecommerce":        "Tienda Online",
	"web_maintenance":  "Mantenimiento Web",
	"seo":              "Posicionamiento SEO",
	"social_media":     "Gestión de Redes Sociales",
	"content_creation": "Contenido para Blogs y Sitios Web",
	"hosting":          "Hosting",
	"domain":           "Dominio",
}

// ServiceLabel returns the catalog label for a service type code, or the
// code itself when it is not in the catalog.
func ServiceLabel(code string) string {
	if label, ok := serviceLabels[code]; ok {
		return label
	}
	return code
}

// ServiceDisplayName picks the name used in a reminder: the free-text
// description when present, otherwise the catalog label of the type.
func ServiceDisplayName(description, typeCode string) string {
	if description != "" {
		return description
	}
	return ServiceLabel(typeCode)
}
