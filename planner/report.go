package planner

import (
	"fmt"

	"github.com/phpdave11/gofpdf"
)

var workerPalette = [][3]int{
	{141, 211, 199}, {255, 255, 179}, {190, 186, 218}, {251, 128, 114},
	{128, 177, 211}, {253, 180, 98}, {179, 222, 105}, {252, 205, 229},
}

var axisNames = [3]string{"x", "y", "z"}

// WriteReport renders the schedules as a PDF: one page per window with the
// block decomposition drawn in the distribution plane, one rectangle per
// work item shaded by its assigned worker, and the load-balance summary.
func WriteReport(scheds []*Schedule, path string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)

	for _, sched := range scheds {
		pdf.AddPage()

		refArg := sched.Step.Args[sched.RefIndex]
		d1 := sched.Step.Cmd.Dir1(sched.Step.Args)
		d2, hasD2 := sched.Step.Cmd.Dir2(sched.Step.Args)
		if !hasD2 {
			// Pick any other axis so single-direction splits still draw
			// as bands in a plane.
			d2 = (d1 + 1) % 3
		}

		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, fmt.Sprintf("Command %s", sched.Step.Cmd.Name), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Reference %s: %v %v, split %dx%d along (%s, %s), %d blocks",
			refArg.Name, refArg.Dims, refArg.DType, sched.N1, sched.N2,
			axisNames[d1], axisNames[d2], len(sched.Items)), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Largest item %d bytes, worker load mean %.0f stddev %.0f imbalance %.2f",
			sched.Summary.MaxItemBytes, sched.Summary.MeanWorkerBytes,
			sched.Summary.StddevWorkerBytes, sched.Summary.Imbalance), "", 1, "L", false, 0, "")

		const plotX, plotY, plotSize = 15.0, 45.0, 170.0
		extent1 := float64(refArg.Dims.Component(d1))
		extent2 := float64(refArg.Dims.Component(d2))
		scale := plotSize / extent1
		if s := plotSize / extent2; s < scale {
			scale = s
		}

		pdf.SetLineWidth(0.2)
		pdf.SetDrawColor(60, 60, 60)

		for _, item := range sched.Items {
			b := item.Blocks[sched.RefIndex]
			c := workerPalette[item.Worker%len(workerPalette)]
			pdf.SetFillColor(c[0], c[1], c[2])
			pdf.Rect(
				plotX+float64(b.WriteFilePos.Component(d1))*scale,
				plotY+float64(b.WriteFilePos.Component(d2))*scale,
				float64(b.WriteSize.Component(d1))*scale,
				float64(b.WriteSize.Component(d2))*scale,
				"FD")
		}

		// Read regions drawn dashed over the fill show the margin halo.
		pdf.SetDashPattern([]float64{1, 1}, 0)
		pdf.SetDrawColor(200, 30, 30)
		for _, item := range sched.Items {
			b := item.Blocks[sched.RefIndex]
			if b.ReadSize == b.WriteSize {
				continue
			}
			pdf.Rect(
				plotX+float64(b.ReadStart.Component(d1))*scale,
				plotY+float64(b.ReadStart.Component(d2))*scale,
				float64(b.ReadSize.Component(d1))*scale,
				float64(b.ReadSize.Component(d2))*scale,
				"D")
		}
		pdf.SetDashPattern([]float64{}, 0)

		pdf.SetY(plotY + extent2*scale + 10)
		pdf.SetFont("Helvetica", "", 9)
		for w, bytes := range sched.Summary.WorkerBytes {
			c := workerPalette[w%len(workerPalette)]
			pdf.SetFillColor(c[0], c[1], c[2])
			pdf.Rect(pdf.GetX(), pdf.GetY()+1, 3, 3, "FD")
			pdf.SetX(pdf.GetX() + 5)
			pdf.CellFormat(55, 5, fmt.Sprintf("worker %d: %d bytes", w, bytes), "", 0, "L", false, 0, "")
			if (w+1)%3 == 0 {
				pdf.Ln(6)
			}
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing plan report: %w", err)
	}
	return nil
}
