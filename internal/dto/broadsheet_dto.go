package dto

// BroadsheetExportResponse points at an uploaded result broadsheet.
type BroadsheetExportResponse struct {
	FileName string `json:"file_name"`
	URL      string `json:"url"`
	Rows     int    `json:"rows"`
}

// BroadsheetRowError describes a spreadsheet row that could not be imported.
type BroadsheetRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// BroadsheetImportResponse summarises a spreadsheet score import.
type BroadsheetImportResponse struct {
	Imported int                  `json:"imported"`
	Skipped  int                  `json:"skipped"`
	Errors   []BroadsheetRowError `json:"errors"`
}
