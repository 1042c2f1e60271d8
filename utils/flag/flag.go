/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic
	For service dependent flags please define in their respective package
*/

package flag

import (
	"flag"
)

const (
	APIServer = "api_server"
	Ingestor  = "ingestor"
	Worker    = "worker"
)

var (
	IsDevelopment = flag.Bool("dev", true, "set to true if the current run is for development. default value is true")
	ServiceName   = flag.String("service", APIServer, "'api_server', 'ingestor' or 'worker'")
)

// ParseFlags must be called in main before any flag is read.
func ParseFlags() {
	flag.Parse()
}
