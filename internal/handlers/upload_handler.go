package handlers

import (
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/exam-grader/internal/models"
	"alfredoptarigan/exam-grader/internal/repositories"
	"alfredoptarigan/exam-grader/internal/services"
)

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	pdfParser      services.PDFParserService
	maxFileSize    int64
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	pdfParser services.PDFParserService,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		docRepo:        docRepo,
		storageService: storageService,
		pdfParser:      pdfParser,
		maxFileSize:    maxFileSize,
	}
}

// HandleUpload handles POST /upload with 'submission' and/or 'answer_key'
// PDF form files.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	files := form.File

	var responses []models.UploadResponse

	for _, fileType := range []string{"submission", "answer_key"} {
		uploaded, exists := files[fileType]
		if !exists || len(uploaded) == 0 {
			continue
		}

		doc, errResp := h.saveDocument(uploaded[0], fileType)
		if errResp != nil {
			return c.Status(errResp.code).JSON(fiber.Map{"error": errResp.message})
		}

		responses = append(responses, models.UploadResponse{
			ID:           doc.ID.String(),
			Filename:     doc.Filename,
			OriginalName: doc.OriginalFileName,
			FileType:     doc.FileType,
			PageCount:    doc.PageCount,
		})
	}

	if len(responses) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No valid files uploaded. Please upload 'submission' and/or 'answer_key' as PDF files.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Files uploaded successfully",
		"documents": responses,
	})
}

type uploadError struct {
	code    int
	message string
}

func (h *UploadHandler) saveDocument(file *multipart.FileHeader, fileType string) (*models.Document, *uploadError) {
	if file.Size > h.maxFileSize {
		return nil, &uploadError{
			code:    fiber.StatusBadRequest,
			message: fmt.Sprintf("%s file too large. Max size: %d bytes", fileType, h.maxFileSize),
		}
	}

	filename, filePath, err := h.storageService.SaveFile(file, fileType)
	if err != nil {
		return nil, &uploadError{
			code:    fiber.StatusInternalServerError,
			message: fmt.Sprintf("failed to save %s file: %v", fileType, err),
		}
	}

	// Reject documents whose pages cannot be counted; everything
	// downstream needs a page count.
	pageCount, err := h.pdfParser.CountPages(filePath)
	if err != nil {
		h.storageService.DeleteFile(filename)
		return nil, &uploadError{
			code:    fiber.StatusBadRequest,
			message: fmt.Sprintf("%s is not a readable PDF: %v", fileType, err),
		}
	}

	doc := models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FileType:         fileType,
		FilePath:         filePath,
		MediaType:        "application/pdf",
		PageCount:        pageCount,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.docRepo.Create(&doc); err != nil {
		h.storageService.DeleteFile(filename)
		return nil, &uploadError{
			code:    fiber.StatusInternalServerError,
			message: fmt.Sprintf("failed to save %s document record: %v", fileType, err),
		}
	}

	return &doc, nil
}
