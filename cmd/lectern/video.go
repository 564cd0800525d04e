package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/analysis"
	"github.com/jackzampolin/lectern/internal/output"
)

var (
	videoFile        string
	videoMessage     string
	videoProvider    string
	videoStream      bool
	videoBucketOwner string
	videoTokens      int
	videoTemp        float64
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Analyze a video stored in S3 with a Nova model",
	Long: `Video sends an S3-hosted video to a Nova model by reference and prints the
answer. The video bytes never pass through this process, so the file must
already be in S3.`,
	Example: `  lectern video -f s3://media/demo.mp4 -m "Summarize this video"
  lectern video -f s3://media/demo.mp4 -m "When does the chart appear?" --stream`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		client, err := app.modelClient(videoProvider)
		if err != nil {
			return err
		}
		req := &analysis.VideoRequest{
			Message:     videoMessage,
			BucketOwner: videoBucketOwner,
			MaxTokens:   videoTokens,
			Temperature: videoTemp,
		}
		analyzer := app.analyzer(client)

		if videoStream {
			stream, err := analyzer.RunVideoStream(cmd.Context(), videoFile, req)
			if err != nil {
				return err
			}
			defer stream.Close()
			for stream.Next() {
				fmt.Print(stream.Current())
			}
			fmt.Println()
			if err := stream.Err(); err != nil {
				return err
			}
			return output.Print(map[string]any{"token_usage": stream.Usage()})
		}

		res, err := analyzer.RunVideo(cmd.Context(), videoFile, req)
		if err != nil {
			return err
		}
		return output.Print(res)
	},
}

func init() {
	videoCmd.Flags().StringVarP(&videoFile, "file", "f", "", "video path (s3:// only)")
	videoCmd.Flags().StringVarP(&videoMessage, "message", "m", "", "question about the video")
	videoCmd.Flags().StringVar(&videoProvider, "provider", "", "model provider (default: from config)")
	videoCmd.Flags().BoolVar(&videoStream, "stream", false, "stream the response as it is generated")
	videoCmd.Flags().StringVar(&videoBucketOwner, "bucket-owner", "", "AWS account ID of the bucket owner for cross-account access")
	videoCmd.Flags().IntVar(&videoTokens, "max-tokens", 0, "max response tokens (default: from config)")
	videoCmd.Flags().Float64Var(&videoTemp, "temperature", 0, "sampling temperature")
	_ = videoCmd.MarkFlagRequired("file")
	_ = videoCmd.MarkFlagRequired("message")
}
