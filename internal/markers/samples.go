package markers

import (
	"context"
	"fmt"

	"github.com/goldenbrick/markermap/internal/media"
	"github.com/goldenbrick/markermap/internal/models"
	"github.com/goldenbrick/markermap/internal/storage"
	log "github.com/sirupsen/logrus"
)

const sampleIcon = "/static/images/GB_Logo_New-removebg-preview.png"

type sampleMarker struct {
	title       string
	description string
	lat, lng    float64
	items       []media.Input
}

var sampleMarkers = []sampleMarker{
	{
		title:       "Burj Khalifa",
		description: "The world's tallest building and iconic landmark of Dubai",
		lat:         25.1972,
		lng:         55.2744,
		items: []media.Input{
			{Type: "image", URL: "https://upload.wikimedia.org/wikipedia/en/9/93/Burj_Khalifa.jpg"},
			{Type: "video", URL: "https://www.youtube.com/watch?v=mZ7ENQR9J8k"},
		},
	},
	{
		title:       "Dubai Mall",
		description: "One of the world's largest shopping malls with over 1,200 shops",
		lat:         25.1975,
		lng:         55.2796,
		items: []media.Input{
			{Type: "image", URL: "https://dynamic-media-cdn.tripadvisor.com/media/photo-o/15/33/fc/f0/dubai-mall.jpg"},
		},
	},
	{
		title:       "Palm Jumeirah",
		description: "Artificial archipelago in the shape of a palm tree",
		lat:         25.1124,
		lng:         55.1390,
		items: []media.Input{
			{Type: "image", URL: "https://cdn.britannica.com/16/155516-050-7A11D0D6/Palm-Jumeirah-Dubai-United-Arab-Emirates.jpg"},
		},
	},
}

// SeedSamples adds a few Dubai landmarks when the store holds no markers.
// It returns the number of markers added.
func SeedSamples(ctx context.Context, repo storage.MarkerRepository, createdBy string) (int, error) {
	existing, errList := repo.List(ctx)
	if errList != nil {
		return 0, fmt.Errorf("markers: list before seeding: %w", errList)
	}
	if len(existing) > 0 {
		log.Debugf("markers: store already holds %d markers, skipping samples", len(existing))
		return 0, nil
	}

	added := 0
	for _, sample := range sampleMarkers {
		items, errItems := media.FromInputs(sample.items)
		if errItems != nil {
			return added, fmt.Errorf("markers: sample %q: %w", sample.title, errItems)
		}
		gallery, errEncode := media.Encode(items)
		if errEncode != nil {
			return added, fmt.Errorf("markers: sample %q: %w", sample.title, errEncode)
		}
		author := createdBy
		row := &models.Marker{
			Title:         sample.title,
			Description:   sample.description,
			Latitude:      sample.lat,
			Longitude:     sample.lng,
			IconImage:     sampleIcon,
			ContentItems:  gallery,
			GoogleMapsURL: fmt.Sprintf("https://maps.google.com/maps?q=%.4f,%.4f", sample.lat, sample.lng),
			CreatedBy:     &author,
		}
		if errCreate := repo.Create(ctx, row); errCreate != nil {
			return added, fmt.Errorf("markers: sample %q: %w", sample.title, errCreate)
		}
		added++
	}
	log.Infof("markers: added %d sample markers", added)
	return added, nil
}
