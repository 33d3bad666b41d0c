package cmd

import (
	"context"
	"fmt"
	"log"

	"ScoreRack/config"
	"ScoreRack/storage"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理MinIO存储桶中的谱面对象，支持按前缀列出文件和清理目录。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		// 加载配置
		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		// 初始化MinIO客户端
		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		client := storage.GetMinioClient()
		ctx := context.Background()

		if minioDelete {
			// 删除前缀下的所有对象
			if minioPrefix == "" {
				log.Fatal("删除操作需要指定目录前缀")
			}
			fmt.Printf("\n删除前缀: %s\n", minioPrefix)
			deleted := 0
			for obj := range client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{Prefix: minioPrefix, Recursive: true}) {
				if obj.Err != nil {
					log.Fatalf("遍历对象失败: %v", obj.Err)
				}
				if err := client.RemoveObject(ctx, cfg.MinioBucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
					log.Fatalf("删除对象失败 %s: %v", obj.Key, err)
				}
				fmt.Printf("  已删除: %s\n", obj.Key)
				deleted++
			}
			fmt.Printf("共删除 %d 个对象\n", deleted)
		} else {
			// 列出文件
			fmt.Printf("\n列出存储桶中的文件 (前缀: %s)...\n", minioPrefix)
			var count int
			var total int64
			for obj := range client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{Prefix: minioPrefix, Recursive: true}) {
				if obj.Err != nil {
					log.Fatalf("遍历对象失败: %v", obj.Err)
				}
				fmt.Printf("  %10d  %s\n", obj.Size, obj.Key)
				count++
				total += obj.Size
			}
			fmt.Printf("共 %d 个对象，%d 字节\n", count, total)
		}

		fmt.Println("\nMinIO操作完成！")
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	// 添加命令行参数
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件或指定要操作的目录")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定前缀下的所有文件")

	// 添加使用说明
	minioCmd.Example = `  # 列出所有文件
  scorerack minio

  # 按前缀过滤文件
  scorerack minio -p "scores/"

  # 删除前缀下的所有文件
  scorerack minio -d -p "inbox/"`
}
