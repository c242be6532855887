package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	app "imageserv/src/app"
)

type (
	AppHandler struct {
		images         *app.ImageService
		maxUploadBytes int64
	}

	ResponseURL struct {
		URL string `json:"url"`
	}
)

const (
	fileFormField    = "file"
	bucketParam      = "bucket"
	keyPathParam     = "key"
	urlQueryParam    = "url"
	uploadedMessage  = "Image uploaded"
	deletedMessage   = "Deleted image: "
	errorMessageBody = "error"
)

func NewS3Handler(images *app.ImageService, maxUploadBytes int64) *AppHandler {
	return &AppHandler{images: images, maxUploadBytes: maxUploadBytes}
}

// PostImage stores the multipart "file" field under a generated key.
// Bodies larger than maxUploadBytes are refused with 413.
func (a *AppHandler) PostImage(c *gin.Context) {
	if a.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUploadBytes)
	}
	header, err := c.FormFile(fileFormField)
	if err != nil {
		if isTooLarge(err) {
			a.abortTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": errorMessageBody, "error": fmt.Sprintf("can not find file in request: %v", err)})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": errorMessageBody, "error": fmt.Sprintf("can not open file: %v", err)})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			a.abortTooLarge(c)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": errorMessageBody, "error": fmt.Sprintf("failed to read file: %v", err)})
		return
	}

	bucket := c.PostForm(bucketParam)
	key, err := a.images.UploadImage(c.Request.Context(), data, header.Filename, header.Header.Get("Content-Type"), bucket)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, app.UploadResult{
		Message: uploadedMessage,
		Key:     key,
		URL:     a.images.GetImageURL(key, bucket),
	})
}

func (a *AppHandler) RedirectToImage(c *gin.Context) {
	c.Redirect(http.StatusFound, a.images.GetImageURL(c.Param(keyPathParam), c.Query(bucketParam)))
}

func (a *AppHandler) GetImageURL(c *gin.Context) {
	c.JSON(http.StatusOK, ResponseURL{URL: a.images.GetImageURL(c.Param(keyPathParam), c.Query(bucketParam))})
}

// GetImage writes the stored bytes back under the content type recorded at upload.
func (a *AppHandler) GetImage(c *gin.Context) {
	data, contentType, err := a.images.GetImage(c.Request.Context(), c.Param(keyPathParam), c.Query(bucketParam))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

func (a *AppHandler) GetMetadata(c *gin.Context) {
	url, ok := c.GetQuery(urlQueryParam)
	if !ok || url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": errorMessageBody, "error": "no url in query"})
		return
	}
	metadata, err := a.images.GetMetadataFromURL(c.Request.Context(), url, c.Query(bucketParam))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, metadata)
}

func (a *AppHandler) DeleteImage(c *gin.Context) {
	key := c.Param(keyPathParam)
	if err := a.images.DeleteImage(c.Request.Context(), key, c.Query(bucketParam)); err != nil {
		abortWithError(c, err)
		return
	}
	c.String(http.StatusOK, deletedMessage+key)
}

func (a *AppHandler) GetImageList(c *gin.Context) {
	images, err := a.images.ListImages(c.Request.Context(), c.Query(bucketParam))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, images)
}

func (a *AppHandler) GetBuckets(c *gin.Context) {
	buckets, err := a.images.ListBuckets(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

func (a *AppHandler) abortTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"message": errorMessageBody,
		"error":   fmt.Sprintf("upload exceeds %s", humanize.IBytes(uint64(a.maxUploadBytes))),
	})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// abortWithError maps caller mistakes to 400 and everything else to 500.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, app.ErrInvalidArgument) {
		status = http.StatusBadRequest
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"message": errorMessageBody, "error": err.Error()})
}
