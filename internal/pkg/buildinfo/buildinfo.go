package buildinfo

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Build information is injected via -ldflags at build time.
var Version string
var Date string
var Commit string

type Info struct {
	Version string
	Date    string
	Commit  string
}

func normalize(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Current возвращает информацию из пакетных переменных Version/Date/Commit.
func Current() Info {
	return Info{
		Version: normalize(Version),
		Date:    normalize(Date),
		Commit:  normalize(Commit),
	}
}

// Print выводит информацию о сборке в stdout.
func (i Info) Print() {
	fmt.Printf("Build version: %s\n", i.Version)
	fmt.Printf("Build date: %s\n", i.Date)
	fmt.Printf("Build commit: %s\n", i.Commit)
}

func (i Info) Fields() logrus.Fields {
	return logrus.Fields{
		"version": i.Version,
		"date":    i.Date,
		"commit":  i.Commit,
	}
}
