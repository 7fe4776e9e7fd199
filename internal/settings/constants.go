package settings

// Map setting keys and defaults.
const (
	// SiteNameKey is the map_settings key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "Dubai Interactive Map"
	// MapCenterLatKey is the latitude the map opens at.
	MapCenterLatKey = "MAP_CENTER_LAT"
	// MapCenterLngKey is the longitude the map opens at.
	MapCenterLngKey = "MAP_CENTER_LNG"
	// MapZoomKey is the initial zoom level.
	MapZoomKey = "MAP_ZOOM"
	// DefaultMapCenterLat centres the map on Dubai.
	DefaultMapCenterLat = 25.2048
	// DefaultMapCenterLng centres the map on Dubai.
	DefaultMapCenterLng = 55.2708
	// DefaultMapZoom shows the whole city.
	DefaultMapZoom = 11
)
