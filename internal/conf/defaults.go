// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Kitabu")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/kitabu.log")

	viper.SetDefault("migration.batchsize", 100)
	viper.SetDefault("migration.importhistorical", true)
	viper.SetDefault("migration.conflictstrategy", ConflictSkip)
	viper.SetDefault("migration.entities", map[string]bool{
		"categories": true,
		"books":      true,
		"students":   true,
		"borrowings": true,
		"fines":      true,
	})
	viper.SetDefault("migration.classassignments", map[string]string{})
	viper.SetDefault("migration.defaultclass", "other")
	viper.SetDefault("migration.fines.dailyrate", 10.0)
	viper.SetDefault("migration.fines.lostbookamount", 500.0)
	viper.SetDefault("migration.fines.loanperioddays", 14)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "library.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "kitabu")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "kitabu")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
}
