package handler

import (
	"delivery_price_calculator/internal/calculations/service"
	"delivery_price_calculator/internal/calculations/transport"
)

func toCalculateCommand(owner int64, req transport.CalculateRequest) service.CalculatePriceCommand {
	goods := make([]service.GoodMeasure, len(req.Goods))
	for i, g := range req.Goods {
		goods[i] = service.GoodMeasure{
			Height: g.Height,
			Width:  g.Width,
			Length: g.Length,
			Weight: g.Weight,
		}
	}
	return service.CalculatePriceCommand{UserID: owner, Goods: goods}
}

func toCalculateResponse(result service.CalculatePriceResult) transport.CalculateResponse {
	return transport.CalculateResponse{
		CalculationID: result.CalculationID,
		Price:         result.Price,
	}
}

func toHistoryResponse(result service.GetHistoryResult) transport.GetHistoryResponse {
	items := make([]transport.HistoryItemResponse, len(result.Items))
	for i, item := range result.Items {
		goodIDs := item.GoodIDs
		if goodIDs == nil {
			goodIDs = []int64{}
		}
		items[i] = transport.HistoryItemResponse{
			Cargo: transport.CargoResponse{
				Volume:  item.TotalVolume,
				Weight:  item.TotalWeight,
				GoodIDs: goodIDs,
			},
			Price: item.Price,
		}
	}
	return transport.GetHistoryResponse{Items: items}
}

func toClearResponse(result service.ClearResult) transport.ClearHistoryResponse {
	resp := transport.ClearHistoryResponse{
		RemovedCalculations: result.CalculationIDs,
		RemovedGoods:        result.GoodIDs,
	}
	if resp.RemovedCalculations == nil {
		resp.RemovedCalculations = []int64{}
	}
	if resp.RemovedGoods == nil {
		resp.RemovedGoods = []int64{}
	}
	return resp
}
