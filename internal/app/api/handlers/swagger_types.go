package handlers

import (
	"github.com/prepnest/billing/internal/app/service/transaction"
	"github.com/prepnest/billing/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespScanTransactions wraps ScanTransactionsResponse in the standard envelope.
type RespScanTransactions struct {
	Code    response.APIResponseCode             `json:"code"`
	Message string                               `json:"message"`
	Data    transaction.ScanTransactionsResponse `json:"data"`
}
