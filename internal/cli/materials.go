package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"studyrag/internal/models"
	"studyrag/internal/rag"
	"studyrag/internal/util"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newIngestCmd(opts *options) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Store a PDF or text file and build its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			fileType, err := rag.FileTypeFor(src)
			if err != nil {
				return err
			}
			a := opts.app
			materialID := uuid.NewString()
			if title == "" {
				title = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
			}
			path, size, err := copyUpload(a.Cfg.UploadDir, materialID, src)
			if err != nil {
				return err
			}
			m := models.Material{
				MaterialID: materialID,
				Title:      title,
				FileType:   fileType,
				FilePath:   path,
				FileSize:   size,
				Status:     models.MaterialProcessing,
				CreatedAt:  time.Now().UTC(),
			}
			if err := a.Store.CreateMaterial(cmd.Context(), m); err != nil {
				return err
			}
			status, err := a.Activities.IngestMaterial(cmd.Context(), materialID, path, fileType)
			if err != nil {
				return err
			}
			m, err = a.Store.GetMaterial(cmd.Context(), materialID)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd, m)
			}
			cmd.Printf("%s  %s  %s\n", m.MaterialID, status, m.Title)
			if m.FailReason != "" {
				cmd.Printf("  reason: %s\n", m.FailReason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "material title (defaults to the file name)")
	return cmd
}

func copyUpload(uploadDir, materialID, src string) (string, int64, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	path := util.SafeJoin(filepath.Join(uploadDir, materialID), src)
	n, err := util.WriteFileAtomic(path, f)
	if err != nil {
		return "", 0, err
	}
	return path, n, nil
}

func newMaterialsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materials",
		Short: "List or delete stored materials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			materials, err := opts.app.Store.ListMaterials(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd, materials)
			}
			if len(materials) == 0 {
				cmd.Println("No materials.")
				return nil
			}
			for _, m := range materials {
				cmd.Printf("%s  %-10s  %s\n", m.MaterialID, m.Status, m.Title)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [material-id]",
		Short: "Delete a material with its chunks and questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.Store.DeleteMaterial(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			cmd.Printf("Deleted %s\n", args[0])
			return nil
		},
	})
	return cmd
}
