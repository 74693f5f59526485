package models

// DashboardStats — сводка по пулу наград и состоянию распределения.
type DashboardStats struct {
	PlayersTotal     int  `json:"players_total"`
	PrizesTotal      int  `json:"prizes_total"`
	AwardsTotal      int  `json:"awards_total"`
	AwardsAssigned   int  `json:"awards_assigned"`
	AwardsAvailable  int  `json:"awards_available"`
	ResultsTotal     int  `json:"results_total"`
	ResultsFinalized int  `json:"results_finalized"`
	ActiveResultID   *int `json:"active_result_id,omitempty"`
}
