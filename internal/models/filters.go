package models

// PeriodFilter represents query parameters for period counts
type PeriodFilter struct {
	Granularity string `form:"granularity"` // day, week, month, quarter, year
	From        string `form:"from"`        // YYYY-MM-DD, inclusive
	To          string `form:"to"`          // YYYY-MM-DD, inclusive
}

// RankingFilter represents query parameters for category rankings
type RankingFilter struct {
	Category string `form:"category"`
	Year     int    `form:"year"`
	Limit    int    `form:"limit"` // top-N size, defaults to 11
}

// DensityFilter represents query parameters for area-year density
type DensityFilter struct {
	Year       int `form:"year"`
	AreaNumber int `form:"area"`
}

// PreviewFilter represents query parameters for the dataset preview
type PreviewFilter struct {
	From  string `form:"from"`  // YYYY-MM-DD, inclusive
	To    string `form:"to"`    // YYYY-MM-DD, inclusive
	Limit int    `form:"limit"` // rows to return, defaults to 50
}
