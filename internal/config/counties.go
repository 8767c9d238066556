package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/i474232898/covid-county-charts/internal/covid"
)

// LoadCounties reads the "counties" list from a YAML file.
func LoadCounties(path string) (covid.Counties, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return covid.Counties{}, fmt.Errorf("read counties file %s: %w", path, err)
	}

	counties := covid.NewCounties(v.GetStringSlice("counties"))
	if counties.Len() == 0 {
		return covid.Counties{}, fmt.Errorf("counties file %s lists no counties", path)
	}
	return counties, nil
}
