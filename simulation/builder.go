package simulation

import (
	"github.com/rs/xid"

	"github.com/sarchlab/nsim/datarecording"
	"github.com/sarchlab/nsim/kernel"
	"github.com/sarchlab/nsim/monitoring"
)

// Builder can be used to build a simulation.
type Builder struct {
	kernelOptions  []kernel.Option
	monitorOn      bool
	monitorPort    int
	exportOn       bool
	outputFileName string
	clickHouseDSN  string
}

// MakeBuilder creates a new builder. By default the simulation neither
// exports nor serves a monitor.
func MakeBuilder() Builder {
	return Builder{}
}

// WithKernelOptions adds options the kernel is created with.
func (b Builder) WithKernelOptions(opts ...kernel.Option) Builder {
	b.kernelOptions = append(append([]kernel.Option(nil), b.kernelOptions...),
		opts...)
	return b
}

// WithMonitoring serves a monitor for the kernel.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithExport exports the recordings into an SQLite file after every Advance.
func (b Builder) WithExport() Builder {
	b.exportOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
// The .sqlite3 extension is appended.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.exportOn = true
	b.outputFileName = filename
	return b
}

// WithClickHouse exports the recordings to a ClickHouse server instead of an
// SQLite file.
func (b Builder) WithClickHouse(dsn string) Builder {
	b.exportOn = true
	b.clickHouseDSN = dsn
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.clickHouseDSN != "" && b.outputFileName != "" {
		panic("output file name cannot be set when exporting to ClickHouse")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	k, err := kernel.NewKernel(b.kernelOptions...)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		id:     xid.New().String(),
		kernel: k,
	}

	if b.exportOn {
		s.dataRecorder, err = datarecording.NewDataRecorderWithConfig(
			b.recorderConfig(s.id))
		if err != nil {
			return nil, err
		}

		s.outputPath = b.outputPath(s.id)
		s.exporter = datarecording.NewExporter(s.dataRecorder)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterKernel(k)

		s.monitorAddr, err = s.monitor.StartServer()
		if err != nil {
			s.Terminate()
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) recorderConfig(id string) datarecording.RecorderConfig {
	if b.clickHouseDSN != "" {
		return datarecording.RecorderConfig{
			Type:    datarecording.BackendClickHouse,
			ConnStr: b.clickHouseDSN,
		}
	}

	return datarecording.RecorderConfig{
		Type: datarecording.BackendSQLite,
		Path: b.outputPath(id),
	}
}

func (b Builder) outputPath(id string) string {
	switch {
	case b.clickHouseDSN != "":
		return ""
	case b.outputFileName != "":
		return b.outputFileName + ".sqlite3"
	default:
		return "nsim_sim_" + id + ".sqlite3"
	}
}
