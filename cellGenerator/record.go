package cellGenerator

//CellRecord is one simulated cell measurement. The csv tags define the table header, field order is column order
type CellRecord struct {
	DonorID            string  `csv:"Donor_ID"`
	CytokineDose       float64 `csv:"Cytokine_Dose"`
	MarkerGeneResponse float64 `csv:"Marker_Gene_Response"`
	HousekeepingGene   float64 `csv:"Housekeeping_Gene"`
	InflammatoryGene1  float64 `csv:"Inflammatory_Gene_1"`
	InflammatoryGene2  float64 `csv:"Inflammatory_Gene_2"`
	HousekeepingGene2  float64 `csv:"Housekeeping_Gene_2"`
	CytokineResponder  float64 `csv:"Cytokine_Responder"`
	StableGene         float64 `csv:"Stable_Gene"`
}

//NumExpressionChannels is the number of expression columns per record
const NumExpressionChannels = 7

//Columns returns the table header in column order
func Columns() []string {
	return []string{
		"Donor_ID",
		"Cytokine_Dose",
		"Marker_Gene_Response",
		"Housekeeping_Gene",
		"Inflammatory_Gene_1",
		"Inflammatory_Gene_2",
		"Housekeeping_Gene_2",
		"Cytokine_Responder",
		"Stable_Gene",
	}
}

//Expression returns the expression values in column order, matching ChannelSet.Ordered
func (r CellRecord) Expression() []float64 {
	return []float64{
		r.MarkerGeneResponse,
		r.HousekeepingGene,
		r.InflammatoryGene1,
		r.InflammatoryGene2,
		r.HousekeepingGene2,
		r.CytokineResponder,
		r.StableGene,
	}
}

//newRecord assembles a record from values given in column order
func newRecord(donor string, dose float64, values [NumExpressionChannels]float64) CellRecord {
	return CellRecord{
		DonorID:            donor,
		CytokineDose:       dose,
		MarkerGeneResponse: values[0],
		HousekeepingGene:   values[1],
		InflammatoryGene1:  values[2],
		InflammatoryGene2:  values[3],
		HousekeepingGene2:  values[4],
		CytokineResponder:  values[5],
		StableGene:         values[6],
	}
}
