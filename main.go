// Package main provides the entry point for the Tube Modeller application.
package main

import (
	"flag"
	"log"

	"tube-modeller/ui/mainwindow"

	"fyne.io/fyne/v2/app"
)

const (
	appTitle   = "Tube Modeller"
	appVersion = "0.1.0"
)

func main() {
	near := flag.Float64("near", 1, "Near plane distance")
	far := flag.Float64("far", 100, "Far plane distance")
	fovy := flag.Float64("fovy", 45, "Vertical field of view in degrees")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, appVersion)

	fyneApp := app.NewWithID("tube-modeller")

	win := mainwindow.New(fyneApp, mainwindow.Config{
		Near: *near,
		Far:  *far,
		FOVY: *fovy,
	})
	win.SetTitle(appTitle)

	if flag.NArg() > 0 {
		imagePath := flag.Arg(0)
		if err := win.OpenImage(imagePath); err != nil {
			log.Printf("Failed to load image %s: %v", imagePath, err)
		}
	}

	win.ShowAndRun()
}
