package cmd

import (
	"context"
	"fmt"

	"github.com/vibast-solutions/ms-go-course/app/repository"
	"github.com/vibast-solutions/ms-go-course/app/service"
	"github.com/vibast-solutions/ms-go-course/app/storage"

	"github.com/spf13/cobra"
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage course content",
}

var courseSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default course outline when no content exists",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, db, err := loadRuntime()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		if err = autoMigrate(ctx, cfg, db); err != nil {
			return err
		}

		// Seeding never stores files, the local store is only a placeholder.
		courseService := service.NewCourseService(
			repository.NewCourseContentRepository(db),
			storage.NewLocalVideoStore(cfg.Storage.UploadDir),
		)
		count, err := courseService.Seed(ctx)
		if err != nil {
			return err
		}

		if count == 0 {
			fmt.Println("course content already present, nothing seeded")
			return nil
		}
		fmt.Printf("seeded %d course videos\n", count)
		return nil
	},
}

func init() {
	courseCmd.AddCommand(courseSeedCmd)
	rootCmd.AddCommand(courseCmd)
}
