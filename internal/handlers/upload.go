package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type signupForm struct {
	Name      string
	Email     string
	Password  string
	ImagePath string
}

type placeForm struct {
	Title       string
	Description string
	Address     string
	Creator     string
	ImagePath   string
}

func parseSignupForm(c *gin.Context, uploadRoot string) (signupForm, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return signupForm{}, err
	}

	form := signupForm{
		Name:     strings.TrimSpace(c.PostForm("name")),
		Email:    strings.ToLower(strings.TrimSpace(c.PostForm("email"))),
		Password: strings.TrimSpace(c.PostForm("password")),
	}

	imagePath, err := requireImageFile(c, uploadRoot)
	if err != nil {
		return signupForm{}, err
	}
	form.ImagePath = imagePath

	return form, nil
}

func parsePlaceForm(c *gin.Context, uploadRoot string) (placeForm, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return placeForm{}, err
	}

	form := placeForm{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		Address:     strings.TrimSpace(c.PostForm("address")),
		Creator:     strings.TrimSpace(c.PostForm("creator")),
	}

	imagePath, err := requireImageFile(c, uploadRoot)
	if err != nil {
		return placeForm{}, err
	}
	form.ImagePath = imagePath

	return form, nil
}

func requireImageFile(c *gin.Context, uploadRoot string) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || strings.Contains(err.Error(), "no such file") {
			return "", fmt.Errorf("image file is required")
		}
		return "", err
	}
	return saveImage(uploadRoot, file)
}

func saveImage(uploadRoot string, file *multipart.FileHeader) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", fmt.Errorf("image file extension is required")
	}
	allowedExtensions := map[string]struct{}{
		".jpg":  {},
		".jpeg": {},
		".png":  {},
		".webp": {},
	}
	if _, ok := allowedExtensions[extension]; !ok {
		return "", fmt.Errorf("unsupported image type: %s", extension)
	}
	const maxImageSize = 5 << 20
	if file.Size > maxImageSize {
		return "", fmt.Errorf("image file too large (max 5MB)")
	}

	filename := primitive.NewObjectID().Hex() + extension

	dir := filepath.Join(uploadRoot, "uploads", "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[UPLOAD] saveImage: failed to create directory %s: %v", dir, err)
		return "", err
	}

	fullPath := filepath.Join(dir, filename)

	out, err := os.Create(fullPath)
	if err != nil {
		log.Printf("[UPLOAD] saveImage: failed to create file %s: %v", fullPath, err)
		return "", err
	}
	defer out.Close()

	in, err := file.Open()
	if err != nil {
		log.Printf("[UPLOAD] saveImage: failed to open upload %s: %v", file.Filename, err)
		return "", err
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		log.Printf("[UPLOAD] saveImage: failed to save file %s: %v", fullPath, err)
		return "", err
	}

	// path stored on the record
	return filepath.ToSlash(filepath.Join("uploads", "images", filename)), nil
}

// safeDeleteUpload removes a stored image, refusing anything that
// resolves outside uploadRoot/uploads. A missing file is not an error.
func safeDeleteUpload(uploadRoot, relPath string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := path.Clean("/" + strings.TrimPrefix(trimmed, "/"))
	cleanRel = strings.TrimPrefix(cleanRel, "/")

	if !strings.HasPrefix(cleanRel, "uploads/") {
		return fmt.Errorf("refusing to delete non-upload path: %s", relPath)
	}

	cleanBase := filepath.Clean(uploadRoot)
	targetPath := filepath.Join(cleanBase, filepath.FromSlash(cleanRel))
	cleanTarget := filepath.Clean(targetPath)
	if cleanTarget != cleanBase && !strings.HasPrefix(cleanTarget, cleanBase+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside upload root: %s", relPath)
	}

	if err := os.Remove(cleanTarget); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return nil
}
