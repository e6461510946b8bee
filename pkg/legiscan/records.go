package legiscan

// Payload field names of the LegiScan operations.
const (
	FieldSessions       = "sessions"
	FieldMasterList     = "masterlist"
	FieldBill           = "bill"
	FieldBillText       = "text"
	FieldAmendment      = "amendment"
	FieldSupplement     = "supplement"
	FieldRollCall       = "roll_call"
	FieldPerson         = "person"
	FieldSessionPeople  = "sessionpeople"
	FieldSponsoredBills = "sponsoredbills"
	FieldDatasetList    = "datasetlist"
	FieldDataset        = "dataset"
	FieldMonitorList    = "monitorlist"
)

// BillRef carries the identifier of a bill payload.
type BillRef struct {
	BillID int `json:"bill_id"`
}

// PersonRef carries the identifier of a person payload.
type PersonRef struct {
	PeopleID int `json:"people_id"`
}

// RollCallRef carries the identifier of a roll call payload.
type RollCallRef struct {
	RollCallID int `json:"roll_call_id"`
}
