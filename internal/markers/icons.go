package markers

// Icon is a pin image the map client can choose from.
type Icon struct {
	ID       int        `json:"id"`
	Filename string     `json:"filename"`
	URL      string     `json:"url"`
	Size     [2]float64 `json:"size"`
	Anchor   [2]float64 `json:"anchor"`
}

const iconBasePath = "/static/images/markers/"

var iconCatalog = []Icon{
	{ID: 1, Filename: "embedded.svg", Size: [2]float64{57, 86}, Anchor: [2]float64{28.5, 43}},
	{ID: 2, Filename: "embedded_1.svg", Size: [2]float64{57, 57}, Anchor: [2]float64{28.5, 28.5}},
	{ID: 3, Filename: "embedded_2.svg", Size: [2]float64{57, 86}, Anchor: [2]float64{28.5, 43}},
	{ID: 4, Filename: "embedded_3.svg", Size: [2]float64{57, 86}, Anchor: [2]float64{28.5, 43}},
	{ID: 5, Filename: "embedded_4.svg", Size: [2]float64{57, 86}, Anchor: [2]float64{28.5, 43}},
}

// Icons returns the pin image catalog in id order.
func Icons() []Icon {
	out := make([]Icon, len(iconCatalog))
	for i, icon := range iconCatalog {
		icon.URL = iconBasePath + icon.Filename
		out[i] = icon
	}
	return out
}
