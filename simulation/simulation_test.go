package simulation

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/nsim/datarecording"
	"github.com/sarchlab/nsim/kernel"
	"github.com/sarchlab/nsim/model"
)

var _ = Describe("Simulation", func() {
	var simulation *Simulation

	AfterEach(func() {
		if simulation != nil {
			simulation.Terminate()
			simulation = nil
		}
	})

	It("should build a bare kernel by default", func() {
		var err error
		simulation, err = MakeBuilder().
			WithKernelOptions(kernel.WithWorkers(3)).
			Build()

		Expect(err).NotTo(HaveOccurred())
		Expect(simulation.ID()).NotTo(BeEmpty())
		Expect(simulation.GetKernel().Workers()).To(Equal(3))
		Expect(simulation.GetDataRecorder()).To(BeNil())
		Expect(simulation.GetMonitor()).To(BeNil())

		Expect(simulation.Advance(1.0)).To(Succeed())
		Expect(simulation.Exported()).To(Equal(0))
	})

	It("should pass kernel option errors on", func() {
		_, err := MakeBuilder().
			WithKernelOptions(kernel.WithWorkers(0)).
			Build()

		Expect(err).To(HaveOccurred())
	})

	It("should panic if a port is set without monitoring", func() {
		Expect(func() {
			_, _ = MakeBuilder().WithMonitorPort(8080).Build()
		}).To(Panic())
	})

	Context("with export", func() {
		var output string

		BeforeEach(func() {
			output = filepath.Join(GinkgoT().TempDir(), "custom")

			var err error
			simulation, err = MakeBuilder().
				WithOutputFileName(output).
				Build()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should export the records of each advance", func() {
			k := simulation.GetKernel()

			nrn, err := k.Create("iaf_psc_alpha", 1, model.Params{"I_e": 1000.0})
			Expect(err).NotTo(HaveOccurred())
			sr, err := k.Create("spike_recorder", 1, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(k.Connect(nrn, sr, kernel.NewConnSpec())).To(Succeed())

			Expect(simulation.OutputPath()).To(Equal(output + ".sqlite3"))
			Expect(simulation.Advance(5.0)).To(Succeed())
			Expect(simulation.Exported()).To(Equal(1))

			Expect(simulation.Advance(5.0)).To(Succeed())
			Expect(simulation.Exported()).To(Equal(1))

			simulation.Terminate()
			simulation = nil

			reader, err := datarecording.NewReader(output + ".sqlite3")
			Expect(err).NotTo(HaveOccurred())
			defer reader.Close()

			reader.MapTable(datarecording.EventTable, datarecording.EventRow{})
			rows, total, err := reader.Query(context.Background(),
				datarecording.EventTable, datarecording.QueryParams{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(1))

			row := rows[0].(*datarecording.EventRow)
			Expect(row.Step).To(Equal(uint64(48)))
			Expect(row.Sender).To(Equal(uint64(nrn[0])))
		})

		It("should start over after a reset", func() {
			k := simulation.GetKernel()

			_, err := k.Create("voltmeter", 1, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(simulation.Reset()).To(Succeed())

			nodes, err := k.Nodes()
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(BeEmpty())
		})
	})

	It("should serve a monitor", func() {
		var err error
		simulation, err = MakeBuilder().WithMonitoring().Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(simulation.Advance(0.5)).To(Succeed())

		rsp, err := http.Get(simulation.MonitorAddress() + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		var now struct {
			Step uint64 `json:"step"`
		}
		Expect(json.NewDecoder(rsp.Body).Decode(&now)).To(Succeed())
		Expect(now.Step).To(Equal(uint64(5)))
	})
})
