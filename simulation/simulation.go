// Package simulation assembles a kernel with the services around it.
package simulation

import (
	"go.uber.org/zap"

	"github.com/sarchlab/nsim/datarecording"
	"github.com/sarchlab/nsim/kernel"
	"github.com/sarchlab/nsim/monitoring"
)

// A Simulation owns a kernel together with its optional exporter and
// monitor.
type Simulation struct {
	id     string
	kernel *kernel.Kernel

	outputPath   string
	dataRecorder datarecording.DataRecorder
	exporter     *datarecording.Exporter
	exported     int

	monitor     *monitoring.Monitor
	monitorAddr string
}

// ID returns the unique id of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetKernel returns the kernel of the simulation.
func (s *Simulation) GetKernel() *kernel.Kernel {
	return s.kernel
}

// GetDataRecorder returns the data recorder used in the simulation, or nil if
// the simulation does not export.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// OutputPath returns the file the recordings are exported to. It is empty if
// the simulation does not export or exports to ClickHouse.
func (s *Simulation) OutputPath() string {
	return s.outputPath
}

// GetMonitor returns the monitor used in the simulation, or nil.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorAddress returns the URL the monitor is served at.
func (s *Simulation) MonitorAddress() string {
	return s.monitorAddr
}

// Exported returns the number of rows exported so far.
func (s *Simulation) Exported() int {
	return s.exported
}

// Advance runs the kernel for a duration in milliseconds and exports the new
// records. Records of the steps completed before a failed step are exported
// as well.
func (s *Simulation) Advance(ms float64) error {
	runErr := s.kernel.Advance(ms)

	if err := s.export(); err != nil {
		return err
	}

	return runErr
}

func (s *Simulation) export() error {
	if s.exporter == nil {
		return nil
	}

	rows, err := s.exporter.Export(s.kernel)
	if err != nil {
		return err
	}

	s.exported += rows

	s.kernel.Logger().Debug("records exported",
		zap.String("path", s.outputPath),
		zap.Int("rows", rows))

	return nil
}

// Reset resets the kernel. Rows exported before stay in the output file.
func (s *Simulation) Reset() error {
	if err := s.kernel.Reset(); err != nil {
		return err
	}

	if s.exporter != nil {
		s.exporter.Reset()
	}

	return nil
}

// Terminate terminates the simulation.
func (s *Simulation) Terminate() {
	if s.dataRecorder != nil {
		err := s.dataRecorder.Close()
		if err != nil {
			s.kernel.Logger().Error("closing data recorder", zap.Error(err))
		}
	}
}
