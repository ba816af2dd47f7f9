// =============================================================================
// SAP Delivery Date Robot - Main Entry Point
// =============================================================================
//
// USAGE:
//   daterobot run        - Update delivery dates in SAP from the input file
//   daterobot validate   - Check the input file without connecting to SAP
//   daterobot history    - Show past runs and their outcomes
//   daterobot version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : input reading, SAP GUI driving, batch run, result sinks
//   - pkg/       : shared file helpers
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/sap-date-robot/cmd"
)

func main() {
	cmd.Execute()
}
