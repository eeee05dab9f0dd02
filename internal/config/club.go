package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClubFile is the optional YAML file of club defaults. Environment variables
// take precedence over every value in it.
type ClubFile struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`

	Calendar struct {
		ProductID              string `yaml:"product_id"`
		UIDDomain              string `yaml:"uid_domain"`
		EventURL               string `yaml:"event_url"`
		MaxOccurrencesPerEvent int    `yaml:"max_occurrences_per_event"`
	} `yaml:"calendar"`

	Backend struct {
		URL string `yaml:"url"`
	} `yaml:"backend"`

	Weather struct {
		Lat         float64 `yaml:"lat"`
		Lon         float64 `yaml:"lon"`
		Location    string  `yaml:"location"`
		RefreshCron string  `yaml:"refresh_cron"`
	} `yaml:"weather"`
}

// Normalize fills in defaults for anything the file left empty.
func (c *ClubFile) Normalize() {
	if c.Name == "" {
		c.Name = "East Down Yacht Club"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Calendar.ProductID == "" {
		c.Calendar.ProductID = "-//" + c.Name + "//Club Calendar//EN"
	}
	if c.Calendar.UIDDomain == "" {
		c.Calendar.UIDDomain = "clubsite.local"
	}
	if c.Calendar.MaxOccurrencesPerEvent <= 0 {
		c.Calendar.MaxOccurrencesPerEvent = 520
	}
	if c.Backend.URL == "" {
		c.Backend.URL = "http://localhost:5000/api"
	}
	if c.Weather.Lat == 0 && c.Weather.Lon == 0 {
		c.Weather.Lat, c.Weather.Lon = 54.40, -5.65
	}
	if c.Weather.Location == "" {
		c.Weather.Location = "Strangford Lough"
	}
}

// loadClubFile reads path, or returns the defaults when path is empty.
func loadClubFile(path string) (ClubFile, error) {
	var club ClubFile
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return club, fmt.Errorf("read CONFIG_FILE %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &club); err != nil {
			return club, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
		}
	}
	club.Normalize()
	return club, nil
}
