package model

type ItemSales struct {
	Name string `json:"name" bson:"_id"`
	Qty  int    `json:"qty" bson:"qty"`
}

type TableLoad struct {
	TableID string `json:"tableId" bson:"_id"`
	Orders  int    `json:"orders" bson:"orders"`
}

type AnalyticsSummary struct {
	DailyOrders    int64       `json:"dailyOrders"`
	TopSelling     []ItemSales `json:"topSelling"`
	LeastSelling   []ItemSales `json:"leastSelling"`
	Satisfaction   *float64    `json:"satisfaction"`
	BusiestTable   *TableLoad  `json:"busiestTable"`
	AvgPrepMinutes *float64    `json:"avgPrepMinutes"`
}
