package main

import (
	"os"

	studybuddycmder "github.com/papercomputeco/studybuddy/cmd/studybuddy"
)

func main() {
	cmd := studybuddycmder.NewStudyBuddyCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
