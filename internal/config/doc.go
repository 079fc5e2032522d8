// Package config loads the optional configuration file of the application.
//
// Configuration files are written in CUE. Every file is unified with a
// closed schema before it is decoded, so unknown keys and invalid values are
// rejected at startup. Files are applied in order, later files winning.
package config
