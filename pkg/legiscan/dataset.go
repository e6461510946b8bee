package legiscan

import (
	"encoding/base64"
	"fmt"
)

// DatasetSummary is one entry of getDatasetList.
type DatasetSummary struct {
	StateID      int    `json:"state_id"`
	SessionID    int    `json:"session_id"`
	Special      int    `json:"special"`
	YearStart    int    `json:"year_start"`
	YearEnd      int    `json:"year_end"`
	SessionName  string `json:"session_name,omitempty"`
	SessionTitle string `json:"session_title,omitempty"`
	DatasetHash  string `json:"dataset_hash"`
	DatasetDate  string `json:"dataset_date,omitempty"`
	DatasetSize  int64  `json:"dataset_size,omitempty"`
	AccessKey    string `json:"access_key"`
}

// IsSpecial reports whether the dataset covers a special session.
func (d DatasetSummary) IsSpecial() bool {
	return d.Special != 0
}

// Dataset is the payload of getDataset: session metadata plus the base64
// encoded archive.
type Dataset struct {
	StateID     int    `json:"state_id"`
	SessionID   int    `json:"session_id"`
	SessionName string `json:"session_name,omitempty"`
	DatasetHash string `json:"dataset_hash"`
	DatasetDate string `json:"dataset_date,omitempty"`
	DatasetSize int64  `json:"dataset_size,omitempty"`
	MIME        string `json:"mime,omitempty"`
	Zip         string `json:"zip"`
}

// Archive decodes the embedded archive.
func (d Dataset) Archive() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(d.Zip)
	if err != nil {
		return nil, fmt.Errorf("decode dataset archive: %w", err)
	}
	return data, nil
}
