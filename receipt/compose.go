package receipt

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/use-agent/orderbot/models"
)

// stampDesc places the screenshot centred near the bottom of the page at
// half the page width, unrotated and opaque.
const stampDesc = "scalefactor:.5 rel, pos:bc, off:0 36, rot:0, op:1"

// Composer embeds product screenshots into receipt PDFs.
type Composer struct {
	conf *model.Configuration
}

// NewComposer creates a Composer with relaxed PDF validation, since the
// receipts come straight out of Chrome's printer.
func NewComposer() *Composer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Composer{conf: conf}
}

// Embed stamps imagePath onto the first page of pdfPath and replaces
// pdfPath with the result. The original file is untouched on failure.
func (c *Composer) Embed(imagePath, pdfPath string) error {
	if _, err := os.Stat(imagePath); err != nil {
		return models.NewRunError(models.ErrCodeCompose, "screenshot unreadable", err)
	}

	tmp := pdfPath + ".tmp"
	if err := api.AddImageWatermarksFile(pdfPath, tmp, []string{"1"}, true, imagePath, stampDesc, c.conf); err != nil {
		_ = os.Remove(tmp)
		return models.NewRunError(models.ErrCodeCompose,
			fmt.Sprintf("failed to embed %s into %s", imagePath, pdfPath), err)
	}
	if err := os.Rename(tmp, pdfPath); err != nil {
		_ = os.Remove(tmp)
		return models.NewRunError(models.ErrCodeCompose, "failed to replace receipt", err)
	}
	return nil
}
