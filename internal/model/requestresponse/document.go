package requestresponse

import "doc-vault-server/internal/model"

// UploadDocumentResponse : ответ после загрузки документа
type UploadDocumentResponse struct {
	Success  bool            `json:"success" example:"true"`
	Message  string          `json:"message" example:"Документ загружен"`
	Document *model.Document `json:"document"`
}

// ListDocumentsResponse : документы владельца и занятое место
type ListDocumentsResponse struct {
	Documents []model.DocumentView `json:"documents"`
	Storage   model.QuotaView      `json:"storage"`
}

// ShareDocumentResponse : публичная ссылка на документ
type ShareDocumentResponse struct {
	Success  bool   `json:"success" example:"true"`
	ShareURL string `json:"shareUrl" example:"https://vault.example.com/documents/share/0b0c5d3e-5a7e-4a55-9f0a-2d6c8a3b1f11"`
}

// SuccessResponse : стандартный ответ успешного выполнения операции
type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Документ удалён"`
}

// HealthResponse : состояние сервиса
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
